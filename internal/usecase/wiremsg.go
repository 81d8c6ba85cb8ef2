package usecase

import (
	"encoding/json"
	"errors"
	"fmt"

	"capcall/internal/domain"
)

const (
	messageTypeContent = "mib"
	messageTypePersona = "assist"
)

type clientMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type contentMessageData struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

type personaMessageData struct {
	Callee string `json:"callee"`
	Caller string `json:"caller"`
}

// encodeClientMessage builds the wire message delivering a target into the
// call: capsule text for content targets, callee/caller identities for
// persona targets.
func encodeClientMessage(target *domain.CallTarget, callerName string) ([]byte, error) {
	if target == nil {
		return nil, errors.New("no call target to encode")
	}

	switch target.Kind {
	case domain.TargetKindContent:
		if target.Content == nil {
			return nil, errors.New("content target has no payload")
		}
		return json.Marshal(clientMessage{
			Type: messageTypeContent,
			Data: contentMessageData{
				Author:  target.Content.AuthorName,
				Message: target.Content.Body,
			},
		})
	case domain.TargetKindPersona:
		if target.Persona == nil {
			return nil, errors.New("persona target has no payload")
		}
		return json.Marshal(clientMessage{
			Type: messageTypePersona,
			Data: personaMessageData{
				Callee: target.Persona.CalleeName,
				Caller: callerName,
			},
		})
	default:
		return nil, fmt.Errorf("unknown call target kind %q", target.Kind)
	}
}
