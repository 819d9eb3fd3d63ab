package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"

	"github.com/CC90210/ECHOES-APP/internal/pkg/analyzer"
	"github.com/CC90210/ECHOES-APP/internal/pkg/messages"
	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
	"github.com/CC90210/ECHOES-APP/internal/pkg/status"
	tapi "github.com/CC90210/ECHOES-APP/internal/pkg/transcriber/api"
	"github.com/CC90210/ECHOES-APP/internal/pkg/utils"
	"github.com/CC90210/ECHOES-APP/internal/pkg/utils/handler"
	"github.com/CC90210/ECHOES-APP/internal/pkg/voiceprofile"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides echo persistence functionality
type DB interface {
	LoadEcho(ctx context.Context, id string) (*persistence.Echo, error)
	TryStartProcessing(ctx context.Context, id string) (bool, error)
	CompleteTranscription(ctx context.Context, id, transcript string, durationSec int) error
	FailTranscription(ctx context.Context, id, errCode string) error
	UpdateAnalysis(ctx context.Context, id, tone string, themes []string, summary string) error
	UpdateVoiceProfile(ctx context.Context, id string, profile *persistence.VoiceProfile) error
	LoadQuestion(ctx context.Context, id int32) (*persistence.Question, error)
}

// Filer retrieves audio files
type Filer interface {
	LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error)
}

// TranscriberProvider returns an active transcriber instance
type TranscriberProvider interface {
	Get() (tapi.Transcriber, string, error)
}

// Analyzer extracts meaning from a transcript
type Analyzer interface {
	Analyze(ctx context.Context, transcript, questionText string) (*analyzer.Analysis, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient     *gue.Client
	WorkerCount   int
	MsgSender     MsgSender
	DB            DB
	Filer         Filer
	TranscriberPr TranscriberProvider
	Analyzer      Analyzer
	Testing       bool
}

// StartWorkerService starts the event queue listener service to listen for process events
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	processPool, err := newPool(data, messages.Process,
		handler.Create(data, handleProcess, handler.DefaultOpts[messages.EchoMessage]().
			WithFailure(makeFailureHandler(data)).
			WithTimeout(time.Minute*30).
			WithBackoff(handler.DefaultBackoffOrTest(data.Testing))))
	if err != nil {
		return nil, err
	}
	failPool, err := newPool(data, messages.Fail,
		handler.Create(data, handleFail, handler.DefaultOpts[messages.EchoMessage]().
			WithBackoff(handler.DefaultBackoffOrTest(data.Testing))))
	if err != nil {
		return nil, err
	}

	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		runPools(ctx, processPool, failPool)
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func newPool(data *ServiceData, queue string, wf gue.WorkFunc) (*gue.WorkerPool, error) {
	pool, err := gue.NewWorkerPool(
		data.GueClient, gue.WorkMap{queue: wf}, data.WorkerCount,
		gue.WithPoolQueue(queue),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("echoes-worker-"+filepath.Base(queue)),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	return pool, nil
}

func runPools(ctx context.Context, pools ...*gue.WorkerPool) {
	done := make(chan struct{}, len(pools))
	for _, p := range pools {
		go func(p *gue.WorkerPool) {
			if err := p.Run(ctx); err != nil {
				goapp.Log.Error().Err(err).Msg("pool error")
			}
			done <- struct{}{}
		}(p)
	}
	for range pools {
		<-done
	}
}

func handleProcess(ctx context.Context, m *messages.EchoMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling process")
	echoRec, err := data.DB.LoadEcho(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load echo: %w", err)
	}
	if echoRec == nil {
		goapp.Log.Warn().Str("ID", m.ID).Msg("no echo - drop msg")
		return nil
	}
	if echoRec.TranscriptionStatus == status.Completed.String() {
		goapp.Log.Info().Str("ID", m.ID).Msg("already completed - skip")
		return nil
	}
	ok, err := data.DB.TryStartProcessing(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't start processing: %w", err)
	}
	if !ok {
		goapp.Log.Info().Str("ID", m.ID).Msg("processing already started elsewhere - skip")
		return nil
	}
	sendStatusChange(ctx, data, m)
	sendInform(ctx, data, m, amessages.InformTypeStarted)

	transcript, durationSec, err := transcribe(ctx, echoRec, data)
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", m.ID).Msg("transcription failed")
		return failEcho(ctx, data, m, errCodeFor(err))
	}
	if durationSec <= 0 {
		durationSec = echoRec.DurationSeconds
	}
	if err := data.DB.CompleteTranscription(ctx, m.ID, transcript, durationSec); err != nil {
		// release the processing guard so a retry can pass the CAS again
		if fErr := data.DB.FailTranscription(ctx, m.ID, status.ECServiceError.String()); fErr != nil {
			goapp.Log.Error().Err(fErr).Str("ID", m.ID).Msg("can't mark failed")
		}
		return fmt.Errorf("can't complete transcription: %w", err)
	}

	// analysis and voice metrics are best effort - the echo stays completed
	// with defaults if they fail
	analyze(ctx, echoRec, transcript, data)

	sendStatusChange(ctx, data, m)
	sendInform(ctx, data, m, amessages.InformTypeFinished)
	goapp.Log.Info().Str("ID", m.ID).Msg("Transcription completed")
	return nil
}

func transcribe(ctx context.Context, echoRec *persistence.Echo, data *ServiceData) (string, int, error) {
	f, err := data.Filer.LoadFile(ctx, echoRec.AudioKey)
	if err != nil {
		return "", 0, utils.NewErrStorage(fmt.Errorf("can't load audio %s: %w", echoRec.AudioKey, err))
	}
	defer f.Close()
	tr, trName, err := data.TranscriberPr.Get()
	if err != nil {
		return "", 0, fmt.Errorf("can't get transcriber: %w", err)
	}
	goapp.Log.Info().Str("ID", echoRec.ID).Str("transcriber", trName).Msg("transcribing")
	res, err := tr.Transcribe(ctx, f, filepath.Base(echoRec.AudioKey))
	if err != nil {
		return "", 0, fmt.Errorf("can't transcribe: %w", err)
	}
	return res.Text, int(math.Round(res.DurationSeconds)), nil
}

func analyze(ctx context.Context, echoRec *persistence.Echo, transcript string, data *ServiceData) {
	if strings.TrimSpace(transcript) == "" {
		goapp.Log.Info().Str("ID", echoRec.ID).Msg("empty transcript - skip analysis")
		return
	}
	questionText := ""
	if echoRec.QuestionID.Valid {
		q, err := data.DB.LoadQuestion(ctx, echoRec.QuestionID.Int32)
		if err != nil {
			goapp.Log.Warn().Err(err).Str("ID", echoRec.ID).Msg("can't load question")
		} else if q != nil {
			questionText = q.Text
		}
	}
	an, err := data.Analyzer.Analyze(ctx, transcript, questionText)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("ID", echoRec.ID).Msg("analysis failed - keeping transcription only")
	} else {
		if err := data.DB.UpdateAnalysis(ctx, echoRec.ID, an.EmotionalTone, an.Themes, an.Summary); err != nil {
			goapp.Log.Warn().Err(err).Str("ID", echoRec.ID).Msg("can't save analysis")
		}
	}
	if profile := voiceprofile.Derive(transcript, time.Now()); profile != nil {
		if err := data.DB.UpdateVoiceProfile(ctx, echoRec.ID, profile); err != nil {
			goapp.Log.Warn().Err(err).Str("ID", echoRec.ID).Msg("can't save voice profile")
		}
	}
}

func handleFail(ctx context.Context, m *messages.EchoMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling failure")
	return failEcho(ctx, data, m, status.ECServiceError.String())
}

func failEcho(ctx context.Context, data *ServiceData, m *messages.EchoMessage, errCode string) error {
	if err := data.DB.FailTranscription(ctx, m.ID, errCode); err != nil {
		return fmt.Errorf("can't mark failed: %w", err)
	}
	sendStatusChange(ctx, data, m)
	sendInform(ctx, data, m, amessages.InformTypeFailed)
	return nil
}

func errCodeFor(err error) string {
	var se *utils.ErrStorage
	if errors.As(err, &se) {
		return status.ECStorageError.String()
	}
	return status.ECServiceError.String()
}

func sendStatusChange(ctx context.Context, data *ServiceData, m *messages.EchoMessage) {
	if err := data.MsgSender.SendMessage(ctx, messages.NewMessageFrom(m), messages.StatusChange); err != nil {
		goapp.Log.Error().Err(err).Str("ID", m.ID).Msg("can't send status change msg")
	}
}

func sendInform(ctx context.Context, data *ServiceData, m *messages.EchoMessage, informType string) {
	if err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: amessages.QueueMessage{ID: m.ID},
		Type:         informType, At: time.Now()}, messages.Inform); err != nil {
		goapp.Log.Error().Err(err).Str("ID", m.ID).Msg("can't send inform msg")
	}
}

func makeFailureHandler(data *ServiceData) func(context.Context, *messages.EchoMessage, error, *gue.Job) (bool, time.Duration, error) {
	return func(ctx context.Context, m *messages.EchoMessage, err error, j *gue.Job) (bool, time.Duration, error) {
		if j.ErrorCount < 2 {
			return true, 0, nil
		}
		goapp.Log.Warn().Str("ID", m.ID).Int32("errCount", j.ErrorCount).Msg("give up - mark echo failed")
		if sErr := data.MsgSender.SendMessage(ctx, messages.NewMessageFrom(m), messages.Fail); sErr != nil {
			return false, 0, fmt.Errorf("can't send fail msg: %w", sErr)
		}
		return false, 0, nil
	}
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.DB == nil {
		return fmt.Errorf("no db")
	}
	if data.Filer == nil {
		return fmt.Errorf("no filer")
	}
	if data.TranscriberPr == nil {
		return fmt.Errorf("no transcriber provider")
	}
	if data.Analyzer == nil {
		return fmt.Errorf("no analyzer")
	}
	return nil
}
