package apigateway

import (
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/voxwire/internal/attachment"
	"github.com/calyptra/voxwire/internal/dispatch"
	"github.com/calyptra/voxwire/internal/dispatch/mocks"
	"github.com/calyptra/voxwire/internal/log"
	"github.com/calyptra/voxwire/internal/message"
)

func TestMain(m *testing.M) {
	log.Setup("error") // Suppress logs in tests
	os.Exit(m.Run())
}

type gatewayRecorder struct {
	changes []string
}

func (r *gatewayRecorder) OnGatewayChanged(gateway string) {
	r.changes = append(r.changes, gateway)
}

func directiveFor(t *testing.T, name, payload string) *message.Directive {
	t.Helper()
	d, err := message.NewDirective(
		message.DirectiveHeader{
			Namespace: "Alexa.ApiGateway",
			Name:      name,
			MessageID: "m1",
		},
		payload, nil, `{"directive":{"header":{"name":"`+name+`"}}}`,
		attachment.NewInProcessManager(), "",
	)
	require.NoError(t, err)
	return d
}

func TestConfiguration(t *testing.T) {
	g := New("https://default.example", dispatch.NewTraceReporter(nil))
	defer g.Shutdown()

	config := g.Configuration()
	policy, ok := config[dispatch.CapabilityTag{Namespace: "Alexa.ApiGateway", Name: "SetGateway"}]
	require.True(t, ok)
	assert.Equal(t, dispatch.PolicyNeitherNonBlocking, policy)
	assert.Equal(t, "Alexa.ApiGateway", g.Namespace())
}

func TestSetGatewaySuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := mocks.NewMockResultSink(ctrl)
	sink.EXPECT().Complete()

	g := New("https://default.example", dispatch.NewTraceReporter(nil))
	defer g.Shutdown()

	recorder := &gatewayRecorder{}
	g.AddObserver(recorder)
	g.AddObserver(nil) // ignored

	d := directiveFor(t, "SetGateway", `{"gateway":"https://avs-alexa-na.amazon.com"}`)
	g.executeSetGateway(dispatch.NewDirectiveInfo(d, sink))

	assert.Equal(t, "https://avs-alexa-na.amazon.com", g.Gateway())
	assert.Equal(t, []string{"https://avs-alexa-na.amazon.com"}, recorder.changes)
	assert.Equal(t, 0, g.InFlight())
}

// A directive whose name the handler does not recognize produces exactly one
// UNSUPPORTED_OPERATION exception, one failure, and zero state mutation.
func TestSetGatewayUnknownName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reporter := mocks.NewMockExceptionReporter(ctrl)
	sink := mocks.NewMockResultSink(ctrl)

	g := New("https://default.example", reporter)
	defer g.Shutdown()
	recorder := &gatewayRecorder{}
	g.AddObserver(recorder)

	d := directiveFor(t, "NewDialogRequest1", `{"gateway":"https://x"}`)
	gomock.InOrder(
		reporter.EXPECT().SendExceptionEncountered(d.Raw(), message.ExceptionUnsupportedOperation, gomock.Any()),
		sink.EXPECT().Fail(gomock.Any()),
	)

	g.executeSetGateway(dispatch.NewDirectiveInfo(d, sink))

	assert.Equal(t, "https://default.example", g.Gateway())
	assert.Empty(t, recorder.changes)
}

func TestSetGatewayBadPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not JSON", payload: `{broken`},
		{name: "missing gateway", payload: `{}`},
		{name: "empty gateway", payload: `{"gateway":""}`},
		{name: "not a URL", payload: `{"gateway":"not a url"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			reporter := mocks.NewMockExceptionReporter(ctrl)
			sink := mocks.NewMockResultSink(ctrl)
			reporter.EXPECT().SendExceptionEncountered(gomock.Any(), message.ExceptionUnexpectedInformation, gomock.Any())
			sink.EXPECT().Fail(gomock.Any())

			g := New("https://default.example", reporter)
			defer g.Shutdown()

			d := directiveFor(t, "SetGateway", tt.payload)
			g.executeSetGateway(dispatch.NewDirectiveInfo(d, sink))
			assert.Equal(t, "https://default.example", g.Gateway())
		})
	}
}

func TestCancelDirectiveRemovesOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := mocks.NewMockResultSink(ctrl) // expects no terminal calls

	g := New("https://default.example", dispatch.NewTraceReporter(nil))
	defer g.Shutdown()

	d := directiveFor(t, "SetGateway", `{"gateway":"https://x"}`)
	require.True(t, g.PreHandle(d, sink))
	require.Equal(t, 1, g.InFlight())

	g.CancelDirective(dispatch.NewDirectiveInfo(d, sink))
	assert.Equal(t, 0, g.InFlight())
	assert.Equal(t, "https://default.example", g.Gateway())
}

// The immediate path and the dialog-ordered path run the same helper, so the
// observable outcome is identical.
func TestDispatchPathsShareExecution(t *testing.T) {
	g := New("https://default.example", dispatch.NewTraceReporter(nil))
	defer g.Shutdown()

	changed := make(chan string, 1)
	g.AddObserver(observerFunc(func(gateway string) { changed <- gateway }))

	d := directiveFor(t, "SetGateway", `{"gateway":"https://via-immediate.example"}`)
	require.True(t, g.HandleDirectiveImmediately(d))

	select {
	case gateway := <-changed:
		assert.Equal(t, "https://via-immediate.example", gateway)
	case <-time.After(2 * time.Second):
		t.Fatal("immediate dispatch never executed")
	}
	assert.Equal(t, "https://via-immediate.example", g.Gateway())
}

type observerFunc func(gateway string)

func (f observerFunc) OnGatewayChanged(gateway string) { f(gateway) }
