package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/runtime/workers"
)

func newTestOrchestrator(t *testing.T, history *mocks.MockHistoryStore, index *mocks.MockMessageIndex) *Orchestrator {
	t.Helper()
	log := slog.Default()
	sup := workers.NewSupervisor(log, 0)

	// Typed nils must not reach the interface fields, the orchestrator
	// treats a nil interface as "feature disabled".
	var h contract.HistoryStore
	if history != nil {
		h = history
	}
	var i contract.MessageIndex
	if index != nil {
		i = index
	}
	return NewOrchestrator(log, sup, h, i, nil, Options{})
}

func TestOrchestrator_JoinAndBroadcast(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil, nil)

	// Given two connected sessions in the same room
	aliceSink, bobSink := &recorderSink{}, &recorderSink{}
	alice := o.Connect("alice", aliceSink)
	bob := o.Connect("bob", bobSink)

	req.NoError(o.Join(alice.ID, "lobby", "alice"))
	req.NoError(o.Join(bob.ID, "lobby", "bob"))

	// Then both saw the final presence snapshot, sorted by name
	presences := bobSink.presences()
	req.NotEmpty(presences)
	req.Equal([]string{"alice", "bob"}, presences[len(presences)-1].Online)

	// Alice saw her own solo join first, then bob's arrival
	req.Len(aliceSink.presences(), 2)
	req.Equal([]string{"alice"}, aliceSink.presences()[0].Online)
	req.Equal([]string{"alice", "bob"}, aliceSink.presences()[1].Online)

	// When alice sends a message
	msg, err := o.Send(alice.ID, "lobby", "hello everyone")
	req.NoError(err)
	req.Equal(uint64(1), msg.Seq)
	req.Equal("alice", msg.SenderName)

	// Then every member received it, the sender included
	req.Len(aliceSink.messages(), 1)
	req.Len(bobSink.messages(), 1)
	req.Equal("hello everyone", bobSink.messages()[0].Body)
}

func TestOrchestrator_SendValidation(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil, nil)

	sink := &recorderSink{}
	alice := o.Connect("alice", sink)
	req.NoError(o.Join(alice.ID, "lobby", "alice"))

	// Whitespace-only bodies are rejected
	_, err := o.Send(alice.ID, "lobby", "   \t  ")
	req.ErrorIs(err, errors.ErrInvalidMessage)

	// Oversized bodies are rejected
	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'x'
	}
	_, err = o.Send(alice.ID, "lobby", string(big))
	req.ErrorIs(err, errors.ErrMessageTooLong)

	// Sends to a room the session never joined are rejected
	_, err = o.Send(alice.ID, "elsewhere", "hi")
	req.ErrorIs(err, errors.ErrNotMember)

	// Malformed room ids fail before anything else
	_, err = o.Send(alice.ID, "no spaces allowed", "hi")
	req.ErrorIs(err, errors.ErrInvalidRoomID)

	// Then no rejected send consumed a sequence number
	msg, err := o.Send(alice.ID, "lobby", "first real message")
	req.NoError(err)
	req.Equal(uint64(1), msg.Seq)
}

func TestOrchestrator_PerRoomOrdering(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil, nil)

	// Given three members of one room and two concurrent senders
	sinks := make([]*recorderSink, 3)
	ids := make([]string, 3)
	for i := range sinks {
		sinks[i] = &recorderSink{}
		sess := o.Connect("", sinks[i])
		ids[i] = sess.ID
		req.NoError(o.Join(sess.ID, "lobby", "member"))
	}

	const perSender = 50
	var wg sync.WaitGroup
	for s := 0; s < 2; s++ {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, err := o.Send(sender, "lobby", "payload")
				req.NoError(err)
			}
		}(ids[s])
	}
	wg.Wait()

	// Then every member observed the same total order of sequence numbers
	var reference []uint64
	for i, sink := range sinks {
		msgs := sink.messages()
		req.Len(msgs, 2*perSender)

		seqs := make([]uint64, len(msgs))
		for j, m := range msgs {
			seqs[j] = m.Seq
		}
		if i == 0 {
			reference = seqs
			for j := 1; j < len(seqs); j++ {
				req.Greater(seqs[j], seqs[j-1])
			}
			continue
		}
		req.Equal(reference, seqs)
	}
}

func TestOrchestrator_DisconnectCascades(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil, nil)

	// Given alice in two rooms and one observer per room
	aliceSink := &recorderSink{}
	alice := o.Connect("alice", aliceSink)
	req.NoError(o.Join(alice.ID, "lobby", "alice"))
	req.NoError(o.Join(alice.ID, "dev", "alice"))

	lobbySink, devSink := &recorderSink{}, &recorderSink{}
	lobbyObs := o.Connect("lobby-obs", lobbySink)
	devObs := o.Connect("dev-obs", devSink)
	req.NoError(o.Join(lobbyObs.ID, "lobby", "lobby-obs"))
	req.NoError(o.Join(devObs.ID, "dev", "dev-obs"))

	lobbyBefore := len(lobbySink.presences())
	devBefore := len(devSink.presences())

	// When alice disconnects
	o.Disconnect(alice.ID)

	// Then each affected room got exactly one presence update without alice
	req.Len(lobbySink.presences(), lobbyBefore+1)
	req.Equal([]string{"lobby-obs"}, lobbySink.presences()[lobbyBefore].Online)
	req.Len(devSink.presences(), devBefore+1)
	req.Equal([]string{"dev-obs"}, devSink.presences()[devBefore].Online)

	// And alice's sink was closed
	req.True(aliceSink.closed)

	// A second disconnect changes nothing
	o.Disconnect(alice.ID)
	req.Len(lobbySink.presences(), lobbyBefore+1)

	sessions, rooms, members := o.Stats()
	req.Equal(2, sessions)
	req.Equal(2, rooms)
	req.Equal(2, members)
}

func TestOrchestrator_LeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil, nil)

	sink := &recorderSink{}
	alice := o.Connect("alice", sink)
	req.NoError(o.Join(alice.ID, "lobby", "alice"))

	req.NoError(o.Leave(alice.ID, "lobby"))
	req.NoError(o.Leave(alice.ID, "lobby"))

	// Leaving a room never joined is equally silent
	req.NoError(o.Leave(alice.ID, "other"))

	// The emptied room was reclaimed
	_, rooms, _ := o.Stats()
	req.Zero(rooms)
}

func TestOrchestrator_SlowConsumerIsEvicted(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil, nil)

	// Given a healthy sender and a member whose sink refuses events
	healthySink := &recorderSink{}
	healthy := o.Connect("healthy", healthySink)
	req.NoError(o.Join(healthy.ID, "lobby", "healthy"))

	slowSink := &recorderSink{}
	slow := o.Connect("slow", slowSink)
	req.NoError(o.Join(slow.ID, "lobby", "slow"))
	slowSink.mu.Lock()
	slowSink.fail = true
	slowSink.mu.Unlock()

	// When a message is broadcast
	_, err := o.Send(healthy.ID, "lobby", "are you alive?")
	req.NoError(err)

	// Then the healthy member still got the message
	req.Len(healthySink.messages(), 1)

	// And the slow member is eventually disconnected, with presence updated
	req.Eventually(func() bool {
		sessions, _, _ := o.Stats()
		return sessions == 1
	}, time.Second, 10*time.Millisecond)

	req.Eventually(func() bool {
		presences := healthySink.presences()
		if len(presences) == 0 {
			return false
		}
		last := presences[len(presences)-1].Online
		return len(last) == 1 && last[0] == "healthy"
	}, time.Second, 10*time.Millisecond)
}

func TestOrchestrator_JoinAfterDisconnectLeavesNoOrphan(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil, nil)

	sink := &recorderSink{}
	alice := o.Connect("alice", sink)
	o.Disconnect(alice.ID)

	// When a join races in after the disconnect
	req.NoError(o.Join(alice.ID, "lobby", "alice"))

	// Then no room was created for the dead session
	_, rooms, members := o.Stats()
	req.Zero(rooms)
	req.Zero(members)
}

func TestOrchestrator_HistorySeedsNewJoinerOnly(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	history := mocks.NewMockHistoryStore(ctrl)
	o := newTestOrchestrator(t, history, nil)

	recent := []domain.Message{
		{Room: "lobby", Body: "earlier", Seq: 1},
		{Room: "lobby", Body: "later", Seq: 2},
	}

	// Given an existing member
	residentSink := &recorderSink{}
	resident := o.Connect("resident", residentSink)
	history.EXPECT().FetchRecent(domain.RoomID("lobby"), 50).Return(nil, nil)
	req.NoError(o.Join(resident.ID, "lobby", "resident"))

	// When a new member joins a room with history
	joinerSink := &recorderSink{}
	joiner := o.Connect("joiner", joinerSink)
	history.EXPECT().FetchRecent(domain.RoomID("lobby"), 50).Return(recent, nil)
	req.NoError(o.Join(joiner.ID, "lobby", "joiner"))

	// Then only the joiner received the replay, in chronological order
	var replays []event.HistoryReplay
	for _, e := range joinerSink.all() {
		if hr, ok := e.(event.HistoryReplay); ok {
			replays = append(replays, hr)
		}
	}
	req.Len(replays, 1)
	req.Equal(recent, replays[0].Messages)

	for _, e := range residentSink.all() {
		_, isReplay := e.(event.HistoryReplay)
		req.False(isReplay)
	}
}

func TestOrchestrator_SearchRequiresMembership(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	index := mocks.NewMockMessageIndex(ctrl)
	o := newTestOrchestrator(t, nil, index)

	sink := &recorderSink{}
	alice := o.Connect("alice", sink)

	// Then a non-member cannot search the room
	_, err := o.Search(context.Background(), alice.ID, "lobby", "hello")
	req.ErrorIs(err, errors.ErrNotMember)

	// When alice joins, her query reaches the index with the parsed limit
	req.NoError(o.Join(alice.ID, "lobby", "alice"))

	want := []domain.Message{{Room: "lobby", Body: "hello world", Seq: 3}}
	index.EXPECT().
		Search(gomock.Any(), domain.RoomID("lobby"), "hello", 10).
		Return(want, nil)

	got, err := o.Search(context.Background(), alice.ID, "lobby", "hello --limit 10")
	req.NoError(err)
	req.Equal(want, got)

	// Queries without an explicit limit fall back to the server default
	index.EXPECT().
		Search(gomock.Any(), domain.RoomID("lobby"), "hello", 50).
		Return(nil, nil)
	_, err = o.Search(context.Background(), alice.ID, "lobby", "hello")
	req.NoError(err)
}
