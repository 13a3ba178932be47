// Package robotlink streams planned trajectories to the painting robot's
// controller over a serial line and fans controller acknowledgement lines
// out to subscribers.
//
// The wire format is one instruction per line: "M x y" repositions without
// painting and "P x y" paints while moving, matching the waypoint actions
// the planner emits.
package robotlink

import (
	"bufio"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/wallpath/internal/monitoring"
	"github.com/banshee-data/wallpath/internal/planner"
)

var ErrWriteFailed = fmt.Errorf("failed to write to robot port")

// Link multiplexes a single robot serial port: one writer of waypoint
// instructions, any number of subscribers to the controller's response
// lines.
type Link[T Porter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	writeMu      sync.Mutex
}

// LinkInterface defines the behaviour of a robot link, letting the daemon
// and the API layer work against mock links in dev mode and tests.
type LinkInterface interface {
	// Subscribe creates a new channel for receiving response lines from
	// the controller. The returned id identifies the channel when
	// unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendWaypoint writes one waypoint instruction to the controller.
	SendWaypoint(planner.Waypoint) error
	// StreamTrajectory sends every waypoint in order, stopping early if
	// the context is cancelled.
	StreamTrajectory(context.Context, []planner.Waypoint) error
	// Monitor reads response lines from the port and fans them out to
	// subscribers until the context ends or the port closes.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying port.
	Close() error
}

// NewLink wraps an open port in a Link.
func NewLink[T Porter](port T) *Link[T] {
	return &Link[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

func (l *Link[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string)
	l.subscriberMu.Lock()
	defer l.subscriberMu.Unlock()
	l.subscribers[id] = ch
	return id, ch
}

func (l *Link[T]) Unsubscribe(id string) {
	l.subscriberMu.Lock()
	defer l.subscriberMu.Unlock()
	if ch, ok := l.subscribers[id]; ok {
		close(ch)
		delete(l.subscribers, id)
	}
}

// SendWaypoint writes a single instruction line for wp.
func (l *Link[T]) SendWaypoint(wp planner.Waypoint) error {
	code := "M"
	if wp.Action == planner.ActionPaint {
		code = "P"
	}
	line := fmt.Sprintf("%s %.4f %.4f\n", code, wp.X, wp.Y)

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	n, err := l.port.Write([]byte(line))
	if err != nil {
		return err
	}
	if n != len(line) {
		return ErrWriteFailed
	}
	return nil
}

// StreamTrajectory sends the waypoints in order. A cancelled context stops
// the stream between instructions and returns the context's error.
func (l *Link[T]) StreamTrajectory(ctx context.Context, wps []planner.Waypoint) error {
	for i, wp := range wps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := l.SendWaypoint(wp); err != nil {
			return fmt.Errorf("failed to send waypoint %d: %w", i, err)
		}
	}
	return nil
}

// Monitor reads lines from the robot port and sends them to subscribers.
// Subscribers that are not receiving are skipped rather than blocking the
// read loop.
func (l *Link[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(l.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// Reading happens in its own goroutine so the blocking scan.Scan does
	// not prevent the outer loop from observing context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				return nil
			}
			l.subscriberMu.Lock()
			for id, ch := range l.subscribers {
				select {
				case ch <- line:
				default:
					monitoring.Logf("robotlink: subscriber %s not receiving, skipped line", id)
				}
			}
			l.subscriberMu.Unlock()
		}
	}
}

func (l *Link[T]) Close() error {
	l.subscriberMu.Lock()
	defer l.subscriberMu.Unlock()
	for id, ch := range l.subscribers {
		close(ch)
		delete(l.subscribers, id)
	}
	return l.port.Close()
}
