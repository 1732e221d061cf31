package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/engine"
	"github.com/hupe1980/chatflow/graph"
	"github.com/hupe1980/chatflow/workflow"
)

// Client to server frame types.
const (
	frameStart    = "start"
	frameMessage  = "message"
	frameSettings = "settings"
	frameResume   = "resume"
	frameEnd      = "end"
)

// Server to client frame types.
const (
	frameSession = "session"
	frameOpen    = "open"
	frameToken   = "token"
	frameUpdate  = "update"
	frameEnded   = "ended"
	frameError   = "error"
)

// clientFrame is one inbound websocket message.
type clientFrame struct {
	Type     string         `json:"type"`
	Workflow string         `json:"workflow,omitempty"`
	ThreadID string         `json:"thread_id,omitempty"`
	Content  string         `json:"content,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// serverFrame is one outbound websocket message.
type serverFrame struct {
	Type     string             `json:"type"`
	ThreadID string             `json:"thread_id,omitempty"`
	Workflow string             `json:"workflow,omitempty"`
	Settings []workflow.Setting `json:"settings,omitempty"`
	ID       string             `json:"id,omitempty"`
	Content  string             `json:"content,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOrigins,
	})
	if err != nil {
		s.logger.Warn("server.ws.accept_failed", "error", err.Error())
		return
	}

	s.logger.Info("server.ws.connected", "remote", r.RemoteAddr)

	c := &chatConn{server: s, ws: ws}
	c.serve(r.Context())
}

// chatConn is one chat socket: at most one session is bound to it at a time,
// and frames are handled strictly in arrival order.
type chatConn struct {
	server   *Server
	ws       *websocket.Conn
	threadID string
}

func (c *chatConn) serve(ctx context.Context) {
	defer func() {
		_ = c.ws.Close(websocket.StatusNormalClosure, "chat ended")
	}()
	defer c.persistOnExit()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		_, raw, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.server.logger.Debug("server.ws.closed_by_client", "thread_id", c.threadID)
			} else if ctx.Err() == nil {
				c.server.logger.Warn("server.ws.read_failed", "error", err.Error())
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			if err := c.sendError(ctx, "malformed frame"); err != nil {
				return
			}
			continue
		}

		if err := c.dispatch(ctx, frame); err != nil {
			return
		}
	}
}

// dispatch handles one frame. A non-nil return means the connection is no
// longer usable; protocol-level failures are reported as error frames instead.
func (c *chatConn) dispatch(ctx context.Context, frame clientFrame) error {
	switch frame.Type {
	case frameStart:
		return c.handleStart(ctx, frame)
	case frameMessage:
		return c.handleMessage(ctx, frame.Content)
	case frameSettings:
		return c.handleSettings(ctx, frame.Settings)
	case frameResume:
		return c.handleResume(ctx, frame.ThreadID)
	case frameEnd:
		return c.handleEnd(ctx)
	default:
		return c.sendError(ctx, fmt.Sprintf("unknown frame type %q", frame.Type))
	}
}

func (c *chatConn) handleStart(ctx context.Context, frame clientFrame) error {
	sess, err := c.server.engine.Start(frame.ThreadID, frame.Workflow)
	if err != nil {
		return c.sendError(ctx, err.Error())
	}

	c.threadID = sess.ThreadID()

	return c.sendSession(ctx, sess)
}

// handleMessage runs one turn. It mirrors the UI protocol: open a reply on
// the first token, append each following token, close the reply with the full
// accumulated text. A turn that streams no tokens sends nothing.
func (c *chatConn) handleMessage(ctx context.Context, content string) error {
	if c.threadID == "" {
		return c.sendError(ctx, "no active session")
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, errs, err := c.server.engine.Message(turnCtx, c.threadID, content)
	if err != nil {
		return c.sendError(ctx, err.Error())
	}

	var (
		msgID      string
		transcript strings.Builder
		sendErr    error
	)
	for ev := range events {
		if ev.Type != graph.EventToken || ev.Token == "" {
			continue
		}
		transcript.WriteString(ev.Token)

		// A dead connection cancels the turn but the events channel is still
		// drained so the run can wind down.
		if sendErr != nil {
			continue
		}
		if msgID == "" {
			msgID = core.NewID()
			if sendErr = c.send(ctx, serverFrame{Type: frameOpen, ID: msgID}); sendErr != nil {
				cancel()
				continue
			}
		}
		if sendErr = c.send(ctx, serverFrame{Type: frameToken, ID: msgID, Content: ev.Token}); sendErr != nil {
			cancel()
		}
	}

	if err := <-errs; err != nil {
		c.server.logger.Error("server.ws.turn_failed", "thread_id", c.threadID, "error", err.Error())
		if sendErr != nil {
			return sendErr
		}
		return c.sendError(ctx, err.Error())
	}
	if sendErr != nil {
		return sendErr
	}

	if msgID != "" {
		return c.send(ctx, serverFrame{Type: frameUpdate, ID: msgID, Content: transcript.String()})
	}

	return nil
}

func (c *chatConn) handleSettings(ctx context.Context, values map[string]any) error {
	if c.threadID == "" {
		return c.sendError(ctx, "no active session")
	}

	if err := c.server.engine.UpdateSettings(c.threadID, values); err != nil {
		return c.sendError(ctx, err.Error())
	}

	return nil
}

func (c *chatConn) handleResume(ctx context.Context, threadID string) error {
	sess, err := c.server.engine.Resume(ctx, threadID)
	if err != nil {
		return c.sendError(ctx, err.Error())
	}

	c.threadID = sess.ThreadID()

	return c.sendSession(ctx, sess)
}

func (c *chatConn) handleEnd(ctx context.Context) error {
	if c.threadID == "" {
		return c.sendError(ctx, "no active session")
	}

	if err := c.server.engine.End(ctx, c.threadID); err != nil {
		return c.sendError(ctx, err.Error())
	}

	c.threadID = ""

	return c.send(ctx, serverFrame{Type: frameEnded})
}

// persistOnExit saves the live session when the client disconnects without an
// explicit end frame, keeping the conversation resumable.
func (c *chatConn) persistOnExit() {
	if c.threadID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.server.engine.End(ctx, c.threadID); err != nil && !errors.Is(err, engine.ErrSessionNotFound) {
		c.server.logger.Error("server.ws.persist_failed", "thread_id", c.threadID, "error", err.Error())
	}
}

func (c *chatConn) sendSession(ctx context.Context, sess *engine.Session) error {
	return c.send(ctx, serverFrame{
		Type:     frameSession,
		ThreadID: sess.ThreadID(),
		Workflow: sess.WorkflowName(),
		Settings: sess.Settings(),
	})
}

func (c *chatConn) send(ctx context.Context, frame serverFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *chatConn) sendError(ctx context.Context, message string) error {
	return c.send(ctx, serverFrame{Type: frameError, Content: message})
}
