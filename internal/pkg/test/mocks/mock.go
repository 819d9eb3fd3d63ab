package mocks

import (
	"context"
	"io"

	"github.com/CC90210/ECHOES-APP/internal/pkg/analyzer"
	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
	tapi "github.com/CC90210/ECHOES-APP/internal/pkg/transcriber/api"
	"github.com/airenas/async-api/pkg/messages"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	args := m.Called(ctx, name, r, fileSize)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return To[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertEcho(ctx context.Context, echo *persistence.Echo) error {
	args := m.Called(ctx, echo)
	return args.Error(0)
}

func (m *DB) LoadEcho(ctx context.Context, id string) (*persistence.Echo, error) {
	args := m.Called(ctx, id)
	return To[*persistence.Echo](args.Get(0)), args.Error(1)
}

func (m *DB) TryStartProcessing(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *DB) CompleteTranscription(ctx context.Context, id, transcript string, durationSec int) error {
	args := m.Called(ctx, id, transcript, durationSec)
	return args.Error(0)
}

func (m *DB) FailTranscription(ctx context.Context, id, errCode string) error {
	args := m.Called(ctx, id, errCode)
	return args.Error(0)
}

func (m *DB) UpdateAnalysis(ctx context.Context, id, tone string, themes []string, summary string) error {
	args := m.Called(ctx, id, tone, themes, summary)
	return args.Error(0)
}

func (m *DB) UpdateVoiceProfile(ctx context.Context, id string, profile *persistence.VoiceProfile) error {
	args := m.Called(ctx, id, profile)
	return args.Error(0)
}

func (m *DB) LockEmailTable(ctx context.Context, id string, msgType string) error {
	args := m.Called(ctx, id, msgType)
	return args.Error(0)
}

func (m *DB) UnLockEmailTable(ctx context.Context, id string, msgType string, value *int) error {
	args := m.Called(ctx, id, msgType, value)
	return args.Error(0)
}

func (m *DB) LoadQuestion(ctx context.Context, id int32) (*persistence.Question, error) {
	args := m.Called(ctx, id)
	return To[*persistence.Question](args.Get(0)), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is speech to text client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, audio io.Reader, fileName string) (*tapi.Result, error) {
	args := m.Called(ctx, audio, fileName)
	return To[*tapi.Result](args.Get(0)), args.Error(1)
}

// TranscriberProvider is transcriber selection mock
type TranscriberProvider struct{ mock.Mock }

func (m *TranscriberProvider) Get() (tapi.Transcriber, string, error) {
	args := m.Called()
	return To[tapi.Transcriber](args.Get(0)), args.String(1), args.Error(2)
}

// Analyzer is text generation client mock
type Analyzer struct{ mock.Mock }

func (m *Analyzer) Analyze(ctx context.Context, transcript, questionText string) (*analyzer.Analysis, error) {
	args := m.Called(ctx, transcript, questionText)
	return To[*analyzer.Analysis](args.Get(0)), args.Error(1)
}

func To[T any](val interface{}) T {
	var res T
	if val != nil {
		res = val.(T)
	}
	return res
}
