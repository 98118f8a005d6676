// Package webserver serves the static web UI and tells it where the API lives.
package webserver

import (
	"io/fs"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// New builds the web UI app over root. Unknown paths fall back to index.html
// for client-side routing.
func New(root fs.FS, apiURL string) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           30 * time.Second,
		DisableStartupMessage: true,
	})

	app.Use(logger.New(logger.Config{
		Format: "${time} WEB ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())

	// Served before the static handler
	app.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"apiUrl": apiURL})
	})

	app.Get("*", func(c *fiber.Ctx) error {
		p := c.Path()
		if p == "/" {
			p = "/index.html"
		}
		fsPath := strings.TrimPrefix(path.Clean(p), "/")

		data, err := fs.ReadFile(root, fsPath)
		if err != nil {
			fsPath = "index.html"
			if data, err = fs.ReadFile(root, fsPath); err != nil {
				return c.Status(fiber.StatusNotFound).SendString("index.html not found")
			}
		}

		c.Set(fiber.HeaderContentType, contentType(fsPath))
		return c.Send(data)
	})

	return app
}

// Start serves root on addr until the listener fails
func Start(addr string, root fs.FS, apiURL string) error {
	return New(root, apiURL).Listen(addr)
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
