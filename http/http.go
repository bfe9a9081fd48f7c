package http

const (
	DefaultServerName     = "Thimble"
	DefaultContentType    = "text/plain"
	DefaultReadBufferSize = 1024 // a request must fit in one read
	DefaultStaticRoot     = "/static"
	DefaultIndexFile      = "index.html"
	DefaultGzipSuffix     = ".gzip"
	DefaultChunkSize      = 128
	DefaultMaxConns       = 8 // power of two
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 80
)

const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
)

var (
	protocolHttp11      = []byte("HTTP/1.1 ")
	crlf                = []byte("\r\n")
	connectionClose     = []byte("Connection: close\r\n")
	contentEncodingKey  = []byte("Content-Encoding: ")
	contentLengthPrefix = []byte("Content-Length: ")
	contentTypeKey      = []byte("Content-Type: ")
	serverKey           = []byte("Server: ")
)

// Config holds the tunables of a Server. The zero value is not usable, start
// from DefaultConfig.
type Config struct {
	DefaultContentType string
	ReadBufferSize     int
	StaticRoot         string
	IndexFile          string
	GzipSuffix         string
	ChunkSize          int
	MaxConns           int
	Debug              bool
}

func DefaultConfig() Config {
	return Config{
		DefaultContentType: DefaultContentType,
		ReadBufferSize:     DefaultReadBufferSize,
		StaticRoot:         DefaultStaticRoot,
		IndexFile:          DefaultIndexFile,
		GzipSuffix:         DefaultGzipSuffix,
		ChunkSize:          DefaultChunkSize,
		MaxConns:           DefaultMaxConns,
	}
}
