package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Vheissu/abn-checker/internal/lookup"
	"github.com/Vheissu/abn-checker/internal/metrics"
	"github.com/Vheissu/abn-checker/internal/model"
)

type mockLooker struct {
	mock.Mock
}

func (m *mockLooker) Lookup(ctx context.Context, raw string) (*lookup.Result, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lookup.Result), args.Error(1)
}

func sampleResult(origin model.Origin) *lookup.Result {
	eff := model.NewDate(1999, time.November, 1)
	return &lookup.Result{
		Record: model.Record{
			ABN:                "51824753556",
			EntityName:         "AUSTRALIAN TAXATION OFFICE",
			RegistrationStatus: &model.RegistrationStatus{Status: "Active", EffectiveDate: &eff},
			TaxRegistration:    &model.TaxRegistration{Registered: true},
			RetrievedAt:        time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		},
		Origin: origin,
	}
}

func do(t *testing.T, h http.Handler, target string) (*http.Response, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := rec.Result()
	var body Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return res, body
}

func TestLookupPath_Success(t *testing.T) {
	svc := new(mockLooker)
	svc.On("Lookup", mock.Anything, "51824753556").Return(sampleResult(model.OriginFresh), nil)

	res, body := do(t, NewRouter(svc, nil), "/abn/51824753556")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.True(t, body.Success)
	assert.Equal(t, model.OriginFresh, body.Origin)
	require.NotNil(t, body.Data)
	assert.Equal(t, "AUSTRALIAN TAXATION OFFICE", body.Data.EntityName)
	assert.Equal(t, "1999-11-01", body.Data.RegistrationStatus.EffectiveDate.String())
	assert.Nil(t, body.Error)
	svc.AssertExpectations(t)
}

func TestLookupQuery_Cached(t *testing.T) {
	svc := new(mockLooker)
	svc.On("Lookup", mock.Anything, "51 824 753 556").Return(sampleResult(model.OriginCached), nil)

	res, body := do(t, NewRouter(svc, nil), "/lookup?abn=51+824+753+556")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, model.OriginCached, body.Origin)
	svc.AssertExpectations(t)
}

func TestLookup_ErrorStatus(t *testing.T) {
	tests := []struct {
		code   lookup.Code
		status int
	}{
		{lookup.CodeNoIdentifier, http.StatusBadRequest},
		{lookup.CodeInvalidFormat, http.StatusBadRequest},
		{lookup.CodeNotFound, http.StatusNotFound},
		{lookup.CodeUpstreamUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			svc := new(mockLooker)
			svc.On("Lookup", mock.Anything, mock.Anything).
				Return(nil, &lookup.Error{Code: tt.code, Message: "message for client", Err: errors.New("internal detail")})

			res, body := do(t, NewRouter(svc, nil), "/lookup?abn=123")
			assert.Equal(t, tt.status, res.StatusCode)
			assert.False(t, body.Success)
			assert.Nil(t, body.Data)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, "message for client", body.Error.Message)
		})
	}
}

func TestLookup_UnexpectedError(t *testing.T) {
	svc := new(mockLooker)
	svc.On("Lookup", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	res, body := do(t, NewRouter(svc, nil), "/abn/51824753556")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "boom")
}

func TestLookupQuery_MissingParam(t *testing.T) {
	svc := new(mockLooker)
	svc.On("Lookup", mock.Anything, "").
		Return(nil, &lookup.Error{Code: lookup.CodeNoIdentifier, Message: "an ABN is required"})

	res, body := do(t, NewRouter(svc, nil), "/lookup")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, lookup.CodeNoIdentifier, body.Error.Code)
}

func TestLookupPath_EmptySegment(t *testing.T) {
	svc := new(mockLooker)
	svc.On("Lookup", mock.Anything, "").
		Return(nil, &lookup.Error{Code: lookup.CodeNoIdentifier, Message: "an ABN is required"}).Once()

	res, body := do(t, NewRouter(svc, nil), "/abn/")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, lookup.CodeNoIdentifier, body.Error.Code)
	svc.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	NewRouter(new(mockLooker), nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	res, body := do(t, NewRouter(new(mockLooker), nil), "/nope")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, lookup.Code("ROUTE_NOT_FOUND"), body.Error.Code)
}

func TestRequestID(t *testing.T) {
	h := NewRouter(new(mockLooker), nil)

	t.Run("assigned", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("propagated", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
	})

	t.Run("malformed replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
	})
}

func TestRecoverer(t *testing.T) {
	svc := new(mockLooker)
	svc.On("Lookup", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/abn/51824753556", nil)
	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() { NewRouter(svc, nil).ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	NewRouter(new(mockLooker), nil).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.IncLookup(metrics.OutcomeFresh)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewRouter(new(mockLooker), reg).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	b, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `abn_lookups_total{outcome="fresh"} 1`))
}

func TestMetricsEndpoint_DisabledWithoutGatherer(t *testing.T) {
	res, _ := do(t, NewRouter(new(mockLooker), nil), "/metrics")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor("SOMETHING_ELSE"))
}

func TestNewServer(t *testing.T) {
	srv := NewServer(":0", http.NotFoundHandler())
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
}

func TestLookup_ErrorLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		level   zapcore.Level
	}{
		{"client mistake", &lookup.Error{Code: lookup.CodeInvalidFormat, Message: "malformed"}, "api: lookup rejected", zapcore.DebugLevel},
		{"not registered", &lookup.Error{Code: lookup.CodeNotFound, Message: "not registered"}, "api: lookup rejected", zapcore.DebugLevel},
		{"upstream down", &lookup.Error{Code: lookup.CodeUpstreamUnavailable, Message: "down"}, "api: lookup failed", zapcore.ErrorLevel},
		{"unexpected", errors.New("boom"), "api: lookup failed", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zap.DebugLevel)
			t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

			svc := new(mockLooker)
			svc.On("Lookup", mock.Anything, mock.Anything).Return(nil, tt.err)
			do(t, NewRouter(svc, nil), "/lookup?abn=1")

			entries := recorded.FilterMessage(tt.message).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
		})
	}
}
