package main

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/freekieb7/thimble/http"
)

// The DHT22 needs about this long between trigger and a valid reading.
const conversionTime = 20 * time.Millisecond

// device simulates the board: a DHT22 sensor, an active-low PWM nightlight
// and a bank of GPIO pins.
type device struct {
	mu       sync.Mutex
	tempC    float64
	humidity float64
	duty     int
	pins     map[int]bool
	rng      *rand.Rand
}

func newDevice(seed uint64) *device {
	return &device{
		tempC:    21,
		humidity: 45,
		duty:     512,
		pins:     map[int]bool{},
		rng:      rand.New(rand.NewPCG(seed, seed)),
	}
}

// measure triggers a reading and suspends for the conversion time.
func (d *device) measure(ctx context.Context) error {
	if err := http.Sleep(ctx, conversionTime); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tempC = clamp(d.tempC+d.rng.Float64()-0.5, -40, 80)
	d.humidity = clamp(d.humidity+d.rng.Float64()*2-1, 0, 100)
	return nil
}

func (d *device) readings() (tempC, humidity float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tempC, d.humidity
}

func fahrenheit(tempC float64) float64 {
	return 1.8*tempC + 32
}

func (d *device) brightness() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return percentFromPWM(d.duty)
}

func (d *device) setBrightness(percent int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duty = pwmFromPercent(percent)
	return percentFromPWM(d.duty)
}

func (d *device) pin(n int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pins[n]
}

func (d *device) setPin(n int, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pins[n] = on
}

// The LED is active low: 0% is duty 1023, 100% is duty 0.
func pwmFromPercent(percent int) int {
	return int(math.Round(float64(100-percent) * 1023 / 100))
}

func percentFromPWM(duty int) int {
	return int(math.Round(float64(1023-duty) * 100 / 1023))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
