package charting

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const formPage = `<!DOCTYPE html>
<html>
<head><title>Charting Intake</title></head>
<body>
<h1>New Patient Chart</h1>
<form id="intake-form" action="/charting/submit" method="post" enctype="multipart/form-data">
  <input id="first-name" name="first-name" type="text">
  <input id="last-name" name="last-name" type="text">
  <input id="dob" name="dob" type="text">
  <input id="phone" name="phone" type="text">
  <input id="email" name="email" type="text">
  <input id="insurance" name="insurance" type="text">
  <input id="member-id" name="member-id" type="text">
  <input id="physician" name="physician" type="text">
  <input id="attachment" name="attachment" type="file">
  <button id="submit-btn" type="submit">Create Chart</button>
</form>
</body>
</html>`

// MockServer hosts a stand-in charting UI on a local port for
// environments without access to the real charting system. It is started
// before the client session opens and stopped unconditionally at run end.
type MockServer struct {
	port   int
	logger *slog.Logger
	server *http.Server
}

// NewMockServer configures the local host on the given port.
func NewMockServer(port int, logger *slog.Logger) *MockServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockServer{port: port, logger: logger}
}

// Handler builds the gin routes; exposed separately so tests can serve
// the same UI through httptest.
func (m *MockServer) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/charting", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(formPage))
	})

	router.POST("/charting/submit", func(c *gin.Context) {
		for _, required := range []string{FieldFirstName, FieldLastName, FieldDOB, FieldPhone, FieldEmail, FieldInsurance, FieldMemberID} {
			if c.PostForm(required) == "" {
				c.String(http.StatusBadRequest, "missing field %s", required)
				return
			}
		}

		file, err := c.FormFile(FieldAttach)
		if err != nil {
			c.String(http.StatusBadRequest, "missing attachment")
			return
		}

		page := fmt.Sprintf(`<!DOCTYPE html>
<html><body>
<div id="confirmation">Chart created for %s, %s (%s)</div>
</body></html>`,
			c.PostForm(FieldLastName), c.PostForm(FieldFirstName), file.Filename)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})

	return router
}

// Start begins serving in the background and returns once the listener is
// requested; readiness is confirmed by the client's Open poll.
func (m *MockServer) Start() {
	if m.server != nil {
		return
	}
	m.server = &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", m.port),
		Handler: m.Handler(),
	}
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("mock charting host stopped", "error", err)
		}
	}()
}

// Stop shuts the local host down, bounded so teardown never hangs a run.
func (m *MockServer) Stop() {
	if m.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = m.server.Shutdown(ctx)
	m.server = nil
}
