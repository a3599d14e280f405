// Package router decodes inbound channel frames and applies them to the store.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chat-sync/internal/apierr"
	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/store"
	"chat-sync/internal/ws"
)

// Router is the single writer of frame-driven state.
type Router struct {
	store *store.Store
}

func New(st *store.Store) *Router {
	return &Router{store: st}
}

// Run drains events until ctx is done or the channel closes.
func (r *Router) Run(ctx context.Context, events <-chan ws.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := r.Route(ev); err != nil {
				log.Printf("router: dropped frame channel=%s err=%v", ev.Key, err)
			}
		}
	}
}

// Route applies one frame. Malformed frames return an error and leave the store untouched.
func (r *Router) Route(ev ws.Event) error {
	kind := string(ev.Key.Kind)

	var header models.FrameHeader
	if err := json.Unmarshal(ev.Payload, &header); err != nil {
		observability.IncFrameDropped("malformed")
		return fmt.Errorf("decode frame header: %w", err)
	}

	var err error
	switch header.Type {
	case models.FrameMessage:
		err = r.message(ev)
	case models.FrameReaction:
		err = r.reaction(ev)
	case models.FrameTyping:
		err = r.typing(ev)
	case models.FrameStatus:
		err = r.status(ev)
	case models.FrameNewNotification:
		err = r.notification(ev)
	case models.FrameError:
		err = r.serverError(ev)
	default:
		observability.IncFrameDropped("unknown_type")
		return nil
	}
	if err != nil {
		observability.IncFrameDropped("malformed")
		return fmt.Errorf("decode %s frame: %w", header.Type, err)
	}
	observability.IncFrame(kind, header.Type)
	return nil
}

func (r *Router) message(ev ws.Event) error {
	var f models.MessageFrame
	if err := json.Unmarshal(ev.Payload, &f); err != nil {
		return err
	}

	room, ok := r.store.RoomNameByID(f.Room)
	if !ok {
		if ev.Key.Kind != ws.KindChat {
			return fmt.Errorf("message %d for unknown room %d", f.MessageID, f.Room)
		}
		room = ev.Key.Room
	}

	msg := models.Message{
		ID:        f.MessageID,
		Room:      f.Room,
		Sender:    f.Sender,
		Content:   f.Message,
		FileURL:   f.FileURL,
		Timestamp: f.Timestamp,
		IsEdited:  f.IsEdited,
		EditedAt:  f.EditedAt,
		Reactions: f.Reactions,
	}
	if !r.store.AppendMessage(room, msg) {
		log.Printf("router: duplicate message id=%d room=%s", msg.ID, room)
	}
	return nil
}

func (r *Router) reaction(ev ws.Event) error {
	var f models.ReactionFrame
	if err := json.Unmarshal(ev.Payload, &f); err != nil {
		return err
	}
	_, ok := r.store.UpsertReaction(models.Reaction{
		Message:      f.MessageID,
		User:         f.User,
		ReactionType: f.ReactionType,
		CreatedAt:    ev.ReceivedAt,
	})
	if !ok {
		log.Printf("router: reaction for unloaded message id=%d", f.MessageID)
	}
	return nil
}

func (r *Router) typing(ev ws.Event) error {
	var f models.TypingFrame
	if err := json.Unmarshal(ev.Payload, &f); err != nil {
		return err
	}
	r.store.SetTyping(models.TypingState{User: f.User, IsTyping: f.IsTyping})
	return nil
}

func (r *Router) status(ev ws.Event) error {
	var f models.StatusFrame
	if err := json.Unmarshal(ev.Payload, &f); err != nil {
		return err
	}
	r.store.SetPresence(models.UserStatus{User: f.User, Status: f.Status})
	return nil
}

func (r *Router) notification(ev ws.Event) error {
	var f models.NotificationFrame
	if err := json.Unmarshal(ev.Payload, &f); err != nil {
		return err
	}
	r.store.AddNotification(f.Notification)
	r.store.SetUnreadCount(f.UnreadCount)
	return nil
}

func (r *Router) serverError(ev ws.Event) error {
	var f models.ErrorFrame
	if err := json.Unmarshal(ev.Payload, &f); err != nil {
		return err
	}
	r.store.SetError(apierr.New(apierr.KindWebSocket, ev.Key.String(), f.Message))
	return nil
}
