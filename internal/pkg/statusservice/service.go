package statusservice

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"

	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
	"github.com/CC90210/ECHOES-APP/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB loads echo info
type DB interface {
	LoadEcho(ctx context.Context, id string) (*persistence.Echo, error)
}

// WSConnHandler WebSocketConnection wrapper
type WSConnHandler interface {
	HandleConnection(WsConn) error
	GetConnections(id string) ([]WsConn, bool)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	DB        DB
	WSHandler WSConnHandler
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP ECHOES status service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("echoes_status", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/echoes/:id", echoHandler(data))
	e.GET("/live", live(data))
	e.GET("/subscribe", subscribeHandler(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type result struct {
	ID              string                    `json:"id"`
	Status          string                    `json:"status"`
	ErrorCode       string                    `json:"errorCode,omitempty"`
	QuestionID      int32                     `json:"questionId,omitempty"`
	Format          string                    `json:"format,omitempty"`
	DurationSeconds int                       `json:"durationSeconds,omitempty"`
	FileSizeBytes   int64                     `json:"fileSizeBytes,omitempty"`
	Transcript      string                    `json:"transcript,omitempty"`
	EmotionalTone   string                    `json:"emotionalTone,omitempty"`
	Themes          []string                  `json:"themes,omitempty"`
	AISummary       string                    `json:"aiSummary,omitempty"`
	VoiceProfile    *persistence.VoiceProfile `json:"voiceProfile,omitempty"`
}

func echoHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("echo status method")()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		echoRec, err := data.DB.LoadEcho(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
		}
		var res result
		if echoRec == nil {
			// polling clients expect a body, not a 404
			res = result{ID: id, Status: "NOT_FOUND", ErrorCode: "NOT_FOUND"}
		} else {
			res = *mapEcho(echoRec)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func mapEcho(e *persistence.Echo) *result {
	return &result{ID: e.ID, Status: e.TranscriptionStatus,
		ErrorCode:  utils.FromSQLStr(e.ErrorCode),
		QuestionID: utils.FromSQLInt32OrZero(e.QuestionID),
		Format:     e.Format, DurationSeconds: e.DurationSeconds, FileSizeBytes: e.FileSizeBytes,
		Transcript:    utils.FromSQLStr(e.Transcript),
		EmotionalTone: utils.FromSQLStr(e.EmotionalTone),
		Themes:        e.Themes,
		AISummary:     utils.FromSQLStr(e.AISummary),
		VoiceProfile:  e.VoiceProfile}
}

func validate(data *Data) error {
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribeHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.WSHandler.HandleConnection(ws)
	}
}
