package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/cdmctl/internal/auth"
	"github.com/danmuck/cdmctl/internal/cdm"
	"github.com/danmuck/cdmctl/internal/observability"
	"github.com/danmuck/cdmctl/internal/protocol/frame"
	"github.com/danmuck/cdmctl/internal/protocol/link"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Executor runs one device command. *cdm.Dispenser satisfies it.
type Executor interface {
	Exec(ctx context.Context, cmd cdm.Command, args ...byte) (cdm.Response, error)
}

type Bridge struct {
	ID       string
	Addr     string
	Device   string
	Appeared time.Time
	// Timeout bounds one device exchange; zero leaves only the port timeout.
	Timeout time.Duration
	// Auth guards the device routes when set.
	Auth auth.Validator

	exec   Executor
	router *gin.Engine
}

func Appear(id, addr, device string, exec Executor, corsOrigins []string) *Bridge {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	if origins := normalizeOrigins(corsOrigins); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	b := &Bridge{
		ID:       id,
		Addr:     addr,
		Device:   device,
		Appeared: time.Now(),
		exec:     exec,
		router:   r,
	}
	b.RegisterRoutes()
	return b
}

func (b *Bridge) HTTPRouter() *gin.Engine {
	return b.router
}

func (b *Bridge) Serve() error {
	log.Info().Str("bridge", b.ID).Str("addr", b.Addr).Str("device", b.Device).Msg("bridge.serve")
	return b.router.Run(b.Addr)
}

func (b *Bridge) RegisterRoutes() {
	r := b.router
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(b.Appeared).String(),
			"bridge": b.ID,
			"device": b.Device,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Every route that takes the serial line sits behind the token guard.
	guarded := r.Group("/", b.requireAuth)
	guarded.GET("/status", func(c *gin.Context) {
		b.run(c, cdm.CmdReadStatus, nil)
	})
	guarded.POST("/initialize", func(c *gin.Context) {
		b.run(c, cdm.CmdInitialize, nil)
	})

	guarded.POST("/exec", func(c *gin.Context) {
		var req ExecRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cmd, args, err := req.Decode()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		b.run(c, cmd, args)
	})
}

func (b *Bridge) requireAuth(c *gin.Context) {
	if b.Auth == nil {
		c.Next()
		return
	}
	if err := auth.Check(b.Auth, c.GetHeader("Authorization")); err != nil {
		log.Warn().Str("bridge", b.ID).Str("path", c.FullPath()).Msg("bridge.unauthorized")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthorized.Error()})
		return
	}
	c.Next()
}

// ExecRequest is the /exec body. Command is a name ("read_status") or a
// byte literal ("0x31"); Args are byte literals.
type ExecRequest struct {
	Command string   `json:"command" binding:"required"`
	Args    []string `json:"args"`
}

func (r ExecRequest) Decode() (cdm.Command, []byte, error) {
	cmd, err := ParseCommand(r.Command)
	if err != nil {
		return 0, nil, err
	}
	args := make([]byte, 0, len(r.Args))
	for i, raw := range r.Args {
		v, err := ParseByte(raw)
		if err != nil {
			return 0, nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		args = append(args, v)
	}
	return cmd, args, nil
}

// ParseCommand accepts a command name or a byte literal.
func ParseCommand(raw string) (cdm.Command, error) {
	raw = strings.TrimSpace(raw)
	if cmd, ok := cdm.LookupCommand(strings.ToLower(raw)); ok {
		return cmd, nil
	}
	v, err := ParseByte(raw)
	if err != nil {
		return 0, fmt.Errorf("unknown command %q", raw)
	}
	return cdm.Command(v), nil
}

// ParseByte parses a decimal, 0x-hex, 0o-octal or 0b-binary byte literal.
func ParseByte(raw string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", raw)
	}
	return byte(v), nil
}

// ResponseView is the JSON shape of a device reply.
type ResponseView struct {
	Command    string   `json:"command"`
	Status     string   `json:"status"`
	StatusCode string   `json:"status_code"`
	OK         bool     `json:"ok"`
	Cassette   int      `json:"cassette,omitempty"`
	Data       string   `json:"data"`
	Raw        string   `json:"raw"`
	Rejects    []string `json:"rejects,omitempty"`
}

func NewResponseView(resp cdm.Response) ResponseView {
	view := ResponseView{
		Command:    resp.Command.String(),
		Status:     resp.Status.String(),
		StatusCode: fmt.Sprintf("0x%02X", byte(resp.Status)),
		OK:         resp.Status.OK(),
		Data:       hex.EncodeToString(resp.Data),
		Raw:        hex.EncodeToString(resp.Raw),
	}
	if n, ok := resp.Status.Cassette(); ok {
		view.Cassette = n
	}
	if resp.Command == cdm.CmdRejectLog && len(resp.Data) > 0 {
		view.Rejects = cdm.RejectReason(resp.Data[0]).Reasons()
	}
	return view
}

func (b *Bridge) run(c *gin.Context, cmd cdm.Command, args []byte) {
	observability.SetCommand(c, cmd.String())
	ctx := c.Request.Context()
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	resp, err := b.exec.Exec(ctx, cmd, args...)
	if err != nil {
		_ = c.Error(err)
		c.JSON(StatusForError(err), gin.H{"error": err.Error(), "command": cmd.String()})
		return
	}
	c.JSON(http.StatusOK, NewResponseView(resp))
}

// StatusForError maps a link/adapter error class onto an HTTP status.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, frame.ErrMalformed), errors.Is(err, cdm.ErrShortResponse), errors.Is(err, cdm.ErrEchoMismatch):
		return http.StatusBadGateway
	case errors.Is(err, link.ErrTransport):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
