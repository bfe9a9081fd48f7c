package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/freekieb7/thimble/http"
	"github.com/freekieb7/thimble/schedule"
)

type sensorReading struct {
	Celsius    float64 `json:"celsius"`
	Fahrenheit float64 `json:"fahrenheit"`
	Humidity   float64 `json:"humidity"`
}

func newServer(dev *device, logger *slog.Logger) *http.Server {
	server := http.NewServer(http.DefaultServerName)
	server.Logger = logger
	server.Filesystem = nil

	router := server.Router

	router.GET("/temperature/celsius", http.AsyncFunc(func(ctx context.Context, req *http.Request) (any, error) {
		if req.Query["fresh"] != "" {
			if err := dev.measure(ctx); err != nil {
				return nil, err
			}
		}
		tempC, _ := dev.readings()
		return math.Round(tempC), nil
	}))
	router.GET("/temperature/fahrenheit", http.Func(func(*http.Request) (any, error) {
		tempC, _ := dev.readings()
		return math.Round(fahrenheit(tempC)), nil
	}))
	router.GET("/humidity", http.Func(func(*http.Request) (any, error) {
		_, humidity := dev.readings()
		return math.Round(humidity), nil
	}))
	router.GET("/sensor", http.Func(func(*http.Request) (any, error) {
		tempC, humidity := dev.readings()
		body, err := json.Marshal(sensorReading{
			Celsius:    tempC,
			Fahrenheit: fahrenheit(tempC),
			Humidity:   humidity,
		})
		if err != nil {
			return nil, err
		}
		return http.Typed(body, http.StatusOK, "application/json"), nil
	}))

	router.GET("/nightlight", http.Func(func(*http.Request) (any, error) {
		return dev.brightness(), nil
	}))
	router.PUT("/nightlight", http.Func(func(req *http.Request) (any, error) {
		brightness, err := strconv.Atoi(strings.TrimSpace(req.Body))
		if err != nil || brightness < 0 || brightness > 100 {
			return http.Status("Value out of range", http.StatusBadRequest), nil
		}
		return dev.setBrightness(brightness), nil
	}))
	router.POST("/nightlight", http.Func(func(*http.Request) (any, error) {
		return http.Status(dev.setBrightness(100), http.StatusCreated), nil
	}))
	router.DELETE("/nightlight", http.Func(func(*http.Request) (any, error) {
		dev.setBrightness(0)
		return nil, nil
	}))

	router.GET("/gpio/<int>", http.CaptureFunc(func(_ *http.Request, capture string) (any, error) {
		pin, err := strconv.Atoi(capture)
		if err != nil {
			return http.Status("Invalid pin", http.StatusBadRequest), nil
		}
		if dev.pin(pin) {
			return 1, nil
		}
		return 0, nil
	}))
	router.PUT("/gpio/<int>", http.CaptureFunc(func(req *http.Request, capture string) (any, error) {
		pin, err := strconv.Atoi(capture)
		if err != nil {
			return http.Status("Invalid pin", http.StatusBadRequest), nil
		}
		switch strings.TrimSpace(req.Body) {
		case "1", "on":
			dev.setPin(pin, true)
		case "0", "off":
			dev.setPin(pin, false)
		default:
			return http.Status("Expected on or off", http.StatusBadRequest), nil
		}
		if dev.pin(pin) {
			return 1, nil
		}
		return 0, nil
	}))

	return server
}

// newSensorJob refreshes the readings in the background, like the polling
// task that runs next to the server on the device.
func newSensorJob(dev *device, logger *slog.Logger, interval time.Duration) *schedule.Job {
	return schedule.NewJob().
		WithName("dht22").
		WithInterval(interval).
		WithExecuteAt(time.Now()).
		WithTasks(func(ctx context.Context) error {
			if err := dev.measure(ctx); err != nil {
				return err
			}
			tempC, humidity := dev.readings()
			logger.DebugContext(ctx, "sensor reading", "celsius", tempC, "fahrenheit", fahrenheit(tempC), "humidity", humidity)
			return nil
		})
}
