// Package flash carries one-shot user messages across a redirect in a
// short-lived cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	cookieName = "flash"
	ctxKey     = "flash.pending"
)

// Levels, used as CSS classes by the templates.
const (
	Success = "success"
	Info    = "info"
	Error   = "error"
)

type Message struct {
	Level string `json:"l"`
	Text  string `json:"t"`
}

// Add queues a message for the next rendered page.
func Add(c *gin.Context, level, text string) {
	msgs := pending(c)
	msgs = append(msgs, Message{Level: level, Text: text})
	c.Set(ctxKey, msgs)
	write(c, msgs)
}

// Pop returns the queued messages, including those carried over from the
// previous request, and clears the cookie.
func Pop(c *gin.Context) []Message {
	msgs := pending(c)
	c.Set(ctxKey, []Message(nil))
	clearCookie(c)
	return msgs
}

func pending(c *gin.Context) []Message {
	if v, ok := c.Get(ctxKey); ok {
		if msgs, ok := v.([]Message); ok {
			return msgs
		}
	}
	if raw, err := c.Cookie(cookieName); err == nil && raw != "" {
		return decode(raw)
	}
	return nil
}

func write(c *gin.Context, msgs []Message) {
	b, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	setCookie(c, base64.RawURLEncoding.EncodeToString(b), 60)
}

func clearCookie(c *gin.Context) {
	setCookie(c, "", -1)
}

func setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func decode(raw string) []Message {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil
	}
	return msgs
}
