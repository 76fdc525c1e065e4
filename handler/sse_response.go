package handler

import (
	"encoding/json"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"
)

// StreamContext is the Context of a long-lived SSE response.
type StreamContext interface {
	Context

	SendComponent(component TemplComponent, opts ...TemplOption) error
	SendSignal(name string, value any) error
	SendSignals(signals map[string]any) error
	Redirect(url string) error
}

// SSEHandler streams events until it returns.
type SSEHandler func(ctx StreamContext) error

type sseResponse struct {
	handler SSEHandler
}

func (s sseResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if !IsDataStar(r) {
		return NewHTTPError(http.StatusBadRequest, "sse_requires_datastar")
	}

	base := NewContext(w, r)
	sse := base.SSE()
	if sse == nil {
		return ErrSSENotInitialized
	}
	return s.handler(&streamContext{Context: base, sse: sse})
}

// SSE opens an event stream and hands it to handler.
func SSE(handler SSEHandler) Response {
	return sseResponse{handler: handler}
}

// Signals patches DataStar signals. Regular requests get the signals as JSON.
func Signals(signals map[string]any) Response {
	return signalsResponse(signals)
}

type signalsResponse map[string]any

func (s signalsResponse) Render(w http.ResponseWriter, r *http.Request) error {
	data, err := json.Marshal(map[string]any(s))
	if err != nil {
		return err
	}
	if IsDataStar(r) {
		return datastar.NewSSE(w, r).PatchSignals(data)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, err = w.Write(data)
	return err
}

type streamContext struct {
	Context
	sse *datastar.ServerSentEventGenerator
}

func (c *streamContext) SendComponent(component TemplComponent, opts ...TemplOption) error {
	return c.sse.PatchElementTempl(component, opts...)
}

func (c *streamContext) SendSignal(name string, value any) error {
	return c.SendSignals(map[string]any{name: value})
}

func (c *streamContext) SendSignals(signals map[string]any) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	return c.sse.PatchSignals(data)
}

func (c *streamContext) Redirect(url string) error {
	return c.sse.Redirect(url)
}
