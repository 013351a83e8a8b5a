package main

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"

	"optio-backend/application/cache"
	"optio-backend/application/commands/bus"
	commandhandlers "optio-backend/application/commands/handlers"
	"optio-backend/application/ports"
	"optio-backend/application/ports/mocks"
	"optio-backend/application/session"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepl(t *testing.T, out *bytes.Buffer) *repl {
	t.Helper()
	reader := new(mocks.MockNarrativeReader)
	reader.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{0}).
		Return([]entities.Nexus{{ID: 0, Content: "Once upon a time", Next: []valueobjects.OptioID{1}}}, nil)
	reader.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{1}).
		Return([]entities.Nexus{{ID: 1, Content: "The forest"}}, nil)
	reader.On("GetFullOptioBatch", mock.Anything, []valueobjects.OptioID{1}).
		Return([]entities.Optio{{ID: 1, Content: "Enter the forest", Origin: 0, Destination: 1, Score: big.NewInt(0)}}, nil)

	sessions := session.NewManager(cache.NewReadThrough(reader, zap.NewNop()), 0, zap.NewNop())
	commandBus := bus.NewCommandBus()
	require.NoError(t, commandhandlers.RegisterAll(commandBus, commandhandlers.Deps{
		Reader:   reader,
		Sessions: sessions,
		Notifier: &consoleNotifier{out: out},
		Logger:   zap.NewNop(),
	}))

	return &repl{
		app:     &app{sessions: sessions, commandBus: commandBus, logger: zap.NewNop()},
		session: sessions.Create(),
		out:     out,
	}
}

func runRepl(t *testing.T, r *repl, input string) {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, r.run(cmd, strings.NewReader(input)))
}

func TestRepl_FollowAndBack(t *testing.T) {
	var out bytes.Buffer
	r := newTestRepl(t, &out)

	runRepl(t, r, "1\nb\nb\np\nq\n")

	output := out.String()
	assert.Contains(t, output, "The forest")
	assert.Contains(t, output, "[1] Enter the forest -> nexus 1")
	assert.Contains(t, output, "error: already at the start")
	assert.Contains(t, output, "* 0: 0 -> 1")
	assert.Equal(t, valueobjects.NexusID(0), r.session.CurrentNexus())
}

func TestRepl_RejectsUnknownInput(t *testing.T) {
	var out bytes.Buffer
	r := newTestRepl(t, &out)

	runRepl(t, r, "go north\n7\n")

	assert.Equal(t, 2, strings.Count(out.String(), "error:"))
	assert.Equal(t, valueobjects.NexusID(0), r.session.CurrentNexus())
}

func TestRepl_ContributeWithoutWalletPrintsStatus(t *testing.T) {
	var out bytes.Buffer
	r := newTestRepl(t, &out)

	runRepl(t, r, "c A new beginning\n")

	assert.Contains(t, out.String(), "[error] Failed to submit nexus: no wallet connected")
}

func TestConsoleNotifier_PrintsStatusOnly(t *testing.T) {
	var out bytes.Buffer
	n := &consoleNotifier{out: &out}

	require.NoError(t, n.SendToSession("s", ports.MessageView, session.View{}))
	require.NoError(t, n.Broadcast(ports.MessageStatus, ports.Status{Message: "Nexus created successfully!", Level: ports.StatusSuccess}))

	assert.Equal(t, "[success] Nexus created successfully!\n", out.String())
}
