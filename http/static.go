package http

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/freekieb7/thimble/filesystem"
)

var mediaTypes = map[string]string{
	"css":  "text/css",
	"gif":  "image/gif",
	"htm":  "text/html",
	"html": "text/html",
	"ico":  "image/x-icon",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"js":   "application/javascript",
	"json": "application/json",
	"mjs":  "application/javascript",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"txt":  "text/plain",
	"wasm": "application/wasm",
	"webp": "image/webp",
	"xml":  "application/xml",
}

// MediaType maps a file extension (without the dot) to its media type.
func MediaType(ext, fallback string) string {
	if mediaType, ok := mediaTypes[strings.ToLower(ext)]; ok {
		return mediaType
	}
	return fallback
}

func acceptsGzip(req *Request) bool {
	return strings.Contains(strings.ToLower(req.Header("Accept-Encoding")), "gzip")
}

// staticPath joins the static root and the request path. ok is false for
// paths that try to climb out of the root.
func (s *Server) staticPath(reqPath string) (string, bool) {
	if reqPath == "" || reqPath[0] != '/' {
		return "", false
	}
	for _, segment := range strings.Split(reqPath, "/") {
		if segment == ".." {
			return "", false
		}
	}

	filePath := strings.TrimSuffix(s.Config.StaticRoot, "/") + reqPath
	if strings.HasSuffix(filePath, "/") {
		filePath += s.Config.IndexFile
	}
	return filePath, true
}

// serveStatic answers req from the static root. The pre-compressed sibling
// wins when the client accepts gzip and the sibling exists.
func (s *Server) serveStatic(ctx context.Context, conn net.Conn, cc *connCtx, req *Request) (int, error) {
	if s.Filesystem == nil {
		return s.respond(ctx, conn, cc, Response{Status: StatusNotFound, ContentType: s.Config.DefaultContentType})
	}

	filePath, ok := s.staticPath(req.Path)
	if !ok {
		return s.respond(ctx, conn, cc, Response{Status: StatusNotFound, ContentType: s.Config.DefaultContentType})
	}
	contentType := MediaType(filesystem.GetFileExtension(filePath), s.Config.DefaultContentType)

	if acceptsGzip(req) {
		gzipPath := filePath + s.Config.GzipSuffix
		if size, err := s.Filesystem.Stat(gzipPath); err == nil {
			return s.streamFile(ctx, conn, cc, gzipPath, size, contentType, "gzip")
		} else if !errors.Is(err, filesystem.ErrFileNotFound) {
			s.Logger.WarnContext(ctx, "stat failed", "path", gzipPath, "error", err)
		}
	}

	size, err := s.Filesystem.Stat(filePath)
	if err != nil {
		if !errors.Is(err, filesystem.ErrFileNotFound) {
			s.Logger.WarnContext(ctx, "stat failed", "path", filePath, "error", err)
		}
		s.debug(ctx, "file not found", "path", filePath)
		return s.respond(ctx, conn, cc, Response{Status: StatusNotFound, ContentType: s.Config.DefaultContentType})
	}

	return s.streamFile(ctx, conn, cc, filePath, size, contentType, "")
}

// streamFile sends the header, then the file in ChunkSize pieces, each one
// written out before the next is read.
func (s *Server) streamFile(ctx context.Context, conn net.Conn, cc *connCtx, filePath string, size int64, contentType, contentEncoding string) (int, error) {
	file, err := s.Filesystem.Open(filePath)
	if err != nil {
		s.Logger.WarnContext(ctx, "open failed", "path", filePath, "error", err)
		return s.respond(ctx, conn, cc, Response{Status: StatusNotFound, ContentType: s.Config.DefaultContentType})
	}
	defer filesystem.Close(file, filePath)

	cc.writeBuf = AppendHeader(cc.writeBuf[:0], StatusOK, contentType, contentEncoding, s.Name, size)
	if err := s.write(ctx, conn, cc.writeBuf); err != nil {
		return StatusOK, err
	}

	for {
		n, err := file.Read(cc.chunkBuf)
		if n > 0 {
			if err := s.write(ctx, conn, cc.chunkBuf[:n]); err != nil {
				return StatusOK, err
			}
		}
		if err == io.EOF {
			return StatusOK, nil
		}
		if err != nil {
			return StatusOK, err
		}
	}
}
