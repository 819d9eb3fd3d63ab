package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/CC90210/ECHOES-APP/internal/pkg/api"
	"github.com/CC90210/ECHOES-APP/internal/pkg/messages"
	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
	"github.com/CC90210/ECHOES-APP/internal/pkg/status"
	"github.com/CC90210/ECHOES-APP/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB saves echoes to DB
type DB interface {
	InsertEcho(ctx context.Context, echo *persistence.Echo) error
	LoadEcho(ctx context.Context, id string) (*persistence.Echo, error)
}

// Data keeps data required for service work
type Data struct {
	Port         int
	Saver        FileSaver
	DB           DB
	MsgSender    MsgSender
	MaxSizeBytes int64
}

const defaultMaxSize = 50 * 1024 * 1024

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP ECHOES upload service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.MaxSizeBytes == 0 {
		data.MaxSizeBytes = defaultMaxSize
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("echoes_upload", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/echoes", upload(data))
	e.POST("/echoes/:id/transcribe", transcribe(data))
	e.GET("/live", live(data))

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
	ID string `json:"id"`
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)
		err = validateFormParams(form)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		file, fHeader, err := takeFile(form, api.PrmAudio)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no audio file")
		}
		defer file.Close()
		ext, err := validateAudioFile(fHeader, data.MaxSizeBytes)
		if err != nil {
			if errors.Is(err, errTooLarge) {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
			}
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		echoRec := persistence.Echo{}
		echoRec.ID = uuid.New().String()
		echoRec.OwnerID = utils.ToSQLStr(c.FormValue(api.PrmOwner))
		echoRec.Email = utils.ToSQLStr(c.FormValue(api.PrmEmail))
		if qStr := c.FormValue(api.PrmQuestion); qStr != "" {
			qID, err := strconv.ParseInt(qStr, 10, 32)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "wrong question reference")
			}
			echoRec.QuestionID = utils.ToSQLInt32(int32(qID))
		}
		echoRec.Format = utils.FormatFromExt(ext)
		echoRec.FileSizeBytes = fHeader.Size
		echoRec.DurationSeconds = utils.EstimateDurationSec(fHeader.Size)
		echoRec.AudioKey = makeAudioKey(utils.FromSQLStr(echoRec.OwnerID), echoRec.ID, ext)
		echoRec.TranscriptionStatus = status.Pending.String()
		echoRec.Created = time.Now()

		// audio first - an echo row without backing audio must never exist
		if err := data.Saver.SaveFile(ctx, echoRec.AudioKey, file, fHeader.Size); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadGateway, "can't save audio")
		}
		if err := data.DB.InsertEcho(ctx, &echoRec); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		// fire and forget - pipeline trigger failure must not fail the upload,
		// the echo stays pending and can be re-triggered
		if err := data.MsgSender.SendMessage(ctx, &messages.EchoMessage{
			QueueMessage: amessages.QueueMessage{ID: echoRec.ID}}, messages.Process); err != nil {
			goapp.Log.Error().Err(err).Str("ID", echoRec.ID).Msg("can't send process msg")
		}

		return c.JSON(http.StatusOK, result{ID: echoRec.ID})
	}
}

func transcribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("transcribe method")()
		ctx := c.Request().Context()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		echoRec, err := data.DB.LoadEcho(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if echoRec == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no echo "+id)
		}
		if echoRec.TranscriptionStatus == status.Completed.String() {
			return c.JSON(http.StatusOK, result{ID: id})
		}
		if err := data.MsgSender.SendMessage(ctx, &messages.EchoMessage{
			QueueMessage: amessages.QueueMessage{ID: id}}, messages.Process); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, result{ID: id})
	}
}

var errTooLarge = errors.New("file too large")

func validateAudioFile(h *multipart.FileHeader, maxSize int64) (string, error) {
	if h.Size <= 0 {
		return "", errors.New("empty audio file")
	}
	if h.Size > maxSize {
		return "", errors.Wrapf(errTooLarge, "max %d bytes", maxSize)
	}
	ext := strings.ToLower(filepath.Ext(h.Filename))
	if !utils.SupportAudioExt(ext) {
		return "", errors.Errorf("wrong file extension: %s", ext)
	}
	return ext, nil
}

func makeAudioKey(owner, id, ext string) string {
	ns := owner
	if ns == "" {
		ns = api.GuestNamespace
	}
	return fmt.Sprintf("echoes/%s/%s%s", ns, id, ext)
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func validateFormParams(form *multipart.Form) error {
	allowed := map[string]bool{api.PrmOwner: true, api.PrmQuestion: true, api.PrmEmail: true}
	for k := range form.Value {
		if !allowed[k] {
			return errors.Errorf("unknown parameter '%s'", k)
		}
	}
	for k := range form.File {
		if k != api.PrmAudio {
			return errors.Errorf("unexpected form file parameter '%s'", k)
		}
	}
	return nil
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	handler := takeFirst(form.File[paramName], nil)
	if handler == nil {
		return nil, nil, http.ErrMissingFile
	}
	file, err := handler.Open()
	return file, handler, err
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}
