package internal

import (
	"testing"
	"time"
)

func collectNotifications(t *testing.T, ch <-chan Notification, n int) []Notification {
	t.Helper()
	var got []Notification
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case notif, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d notifications, want %d", len(got), n)
			}
			got = append(got, notif)
		case <-timeout:
			t.Fatalf("timed out after %d notifications, want %d", len(got), n)
		}
	}
	return got
}

func TestEventBridge_ServerNotifications(t *testing.T) {
	bridge := NewEventBridge()
	serverCh := make(chan struct{})
	agentCh := make(chan *AgentStatus)
	go bridge.Run(serverCh, agentCh)

	sub, cancel := bridge.Subscribe()
	defer cancel()

	serverCh <- struct{}{}
	serverCh <- struct{}{}

	got := collectNotifications(t, sub, 2)
	for i, n := range got {
		if n.Kind != ServerStatusNotification {
			t.Errorf("notification %d kind = %v, want ServerStatusNotification", i, n.Kind)
		}
		if n.AgentStatus != nil {
			t.Errorf("notification %d carries agent status, want none", i)
		}
	}

	close(serverCh)
	close(agentCh)
}

func TestEventBridge_AgentStatusOrder(t *testing.T) {
	bridge := NewEventBridge()
	serverCh := make(chan struct{})
	agentCh := make(chan *AgentStatus)
	go bridge.Run(serverCh, agentCh)

	sub, cancel := bridge.Subscribe()
	defer cancel()

	agentCh <- &AgentStatus{State: AgentThinking}
	agentCh <- &AgentStatus{State: AgentUsingTool, ToolName: "get_weather"}
	agentCh <- nil

	got := collectNotifications(t, sub, 3)

	if got[0].AgentStatus == nil || got[0].AgentStatus.State != AgentThinking {
		t.Errorf("notification 0 = %+v, want thinking status", got[0])
	}
	if got[1].AgentStatus == nil || got[1].AgentStatus.ToolName != "get_weather" {
		t.Errorf("notification 1 = %+v, want using_tool get_weather", got[1])
	}
	if got[2].AgentStatus != nil {
		t.Errorf("notification 2 agent status = %+v, want nil (cleared)", got[2].AgentStatus)
	}

	close(serverCh)
	close(agentCh)
}

func TestEventBridge_CancelStopsDelivery(t *testing.T) {
	bridge := NewEventBridge()
	serverCh := make(chan struct{})
	agentCh := make(chan *AgentStatus)
	go bridge.Run(serverCh, agentCh)

	sub, cancel := bridge.Subscribe()
	cancel()

	select {
	case _, ok := <-sub:
		if ok {
			t.Error("received notification after cancel")
		}
	case <-time.After(time.Second):
		t.Error("subscriber channel not closed after cancel")
	}

	// Publishing after cancel must not panic or deliver.
	serverCh <- struct{}{}

	close(serverCh)
	close(agentCh)
}

func TestEventBridge_NoReplayForLateSubscriber(t *testing.T) {
	bridge := NewEventBridge()
	serverCh := make(chan struct{})
	agentCh := make(chan *AgentStatus)
	go bridge.Run(serverCh, agentCh)

	early, cancelEarly := bridge.Subscribe()
	serverCh <- struct{}{}
	collectNotifications(t, early, 1)
	cancelEarly()

	late, cancelLate := bridge.Subscribe()
	defer cancelLate()

	select {
	case n := <-late:
		t.Errorf("late subscriber received replayed notification %+v", n)
	case <-time.After(100 * time.Millisecond):
	}

	close(serverCh)
	close(agentCh)
}

func TestEventBridge_CloseOnSourceExhaustion(t *testing.T) {
	bridge := NewEventBridge()
	serverCh := make(chan struct{})
	agentCh := make(chan *AgentStatus)

	done := make(chan struct{})
	go func() {
		bridge.Run(serverCh, agentCh)
		close(done)
	}()

	sub, cancel := bridge.Subscribe()
	defer cancel()

	close(serverCh)
	close(agentCh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after both sources closed")
	}

	select {
	case _, ok := <-sub:
		if ok {
			t.Error("unexpected notification after bridge close")
		}
	case <-time.After(time.Second):
		t.Error("subscriber channel not closed after bridge close")
	}
}
