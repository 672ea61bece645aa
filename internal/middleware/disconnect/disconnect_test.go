package disconnect

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func TestCancelsWhenClientHangsUp(t *testing.T) {
	cancelled := make(chan struct{}, 1)

	app := fiber.New(fiber.Config{ReadTimeout: time.Second, DisableStartupMessage: true})
	app.Use(New())
	app.Get("/slow", func(c *fiber.Ctx) error {
		select {
		case <-c.UserContext().Done():
			cancelled <- struct{}{}
		case <-time.After(5 * time.Second):
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	addr := serve(t, app)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = fmt.Fprintf(conn, "GET /slow HTTP/1.1\r\nHost: %s\r\n\r\n", addr)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler context still live after client hung up")
	}
}

func TestKeepAliveConnectionIsReused(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(New())
	app.Get("/", func(c *fiber.Ctx) error {
		time.Sleep(20 * time.Millisecond)
		if err := c.UserContext().Err(); err != nil {
			return err
		}
		return c.SendString("ok")
	})
	addr := serve(t, app)

	client := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 1}}
	defer client.CloseIdleConnections()

	for i := 0; i < 3; i++ {
		resp, err := client.Get("http://" + addr + "/")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "ok", string(body))
	}
}

func TestPassesThroughWithoutSocket(t *testing.T) {
	app := fiber.New()
	app.Use(New())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(fmt.Sprint(c.UserContext().Err() == nil))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "true", string(body))
}
