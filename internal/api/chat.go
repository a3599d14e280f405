package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"chat-sync/internal/apierr"
	"chat-sync/internal/models"
)

// ListRooms returns the rooms visible to the user.
func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var p page[models.Room]
	req, _ := jsonRequest("fetch rooms", http.MethodGet, "rooms/", nil)
	if err := c.do(ctx, req, &p); err != nil {
		return nil, err
	}
	return p.Items, nil
}

// CreateRoom creates a room and returns it.
func (c *Client) CreateRoom(ctx context.Context, in models.CreateRoomRequest) (models.Room, error) {
	var room models.Room
	req, err := jsonRequest("create room", http.MethodPost, "rooms/", in)
	if err != nil {
		return room, err
	}
	err = c.do(ctx, req, &room)
	return room, err
}

// MessageHistory returns a room's stored messages in server order.
func (c *Client) MessageHistory(ctx context.Context, roomName string) ([]models.Message, error) {
	var p page[models.Message]
	req, _ := jsonRequest("fetch message history", http.MethodGet, "messages/history/"+url.PathEscape(roomName)+"/", nil)
	if err := c.do(ctx, req, &p); err != nil {
		return nil, err
	}
	return p.Items, nil
}

// EditMessage replaces the content of one of the user's messages.
func (c *Client) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	var msg models.Message
	req, err := jsonRequest("edit message", http.MethodPut, "message/edit/", map[string]any{
		"message_id":  messageID,
		"new_content": content,
	})
	if err != nil {
		return msg, err
	}
	err = c.do(ctx, req, &msg)
	return msg, err
}

// MarkMessageRead marks a message read for the user.
func (c *Client) MarkMessageRead(ctx context.Context, messageID int) error {
	req, _ := jsonRequest("mark message as read", http.MethodPost, fmt.Sprintf("message/read/%d/", messageID), nil)
	return c.do(ctx, req, nil)
}

// AddReaction stores a reaction. A second reaction by the same user fails with KindDuplicateReaction.
func (c *Client) AddReaction(ctx context.Context, messageID int, reactionType models.ReactionType) (models.Reaction, error) {
	var reaction models.Reaction
	req, err := jsonRequest("add reaction", http.MethodPost, "reaction/add/", map[string]any{
		"message_id":    messageID,
		"reaction_type": reactionType,
	})
	if err != nil {
		return reaction, err
	}
	err = c.do(ctx, req, &reaction)
	return reaction, err
}

// UploadFile stores an attachment for a room and returns its URL.
func (c *Client) UploadFile(ctx context.Context, roomName, filename string, content io.Reader) (string, error) {
	const op = "upload file"
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", apierr.Wrap(apierr.KindValidation, op, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", apierr.Wrap(apierr.KindValidation, op, err)
	}
	if err := w.WriteField("room_name", roomName); err != nil {
		return "", apierr.Wrap(apierr.KindValidation, op, err)
	}
	if err := w.Close(); err != nil {
		return "", apierr.Wrap(apierr.KindValidation, op, err)
	}

	var out struct {
		FileURL string `json:"file_url"`
	}
	req := request{op: op, method: http.MethodPost, path: "upload/", body: buf.Bytes(), contentType: w.FormDataContentType()}
	if err := c.do(ctx, req, &out); err != nil {
		return "", err
	}
	return out.FileURL, nil
}

// ActiveUsers lists active users, optionally filtered by a search term.
func (c *Client) ActiveUsers(ctx context.Context, search string) ([]models.User, error) {
	path := "users/active/"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var p page[models.User]
	req, _ := jsonRequest("fetch active users", http.MethodGet, path, nil)
	if err := c.do(ctx, req, &p); err != nil {
		return nil, err
	}
	return p.Items, nil
}
