package handler

import (
	"github.com/corphub/events-api/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(req createEventRequest, idempotencyKey string) ports.CreateEventInput {
	in := ports.CreateEventInput{
		Title:          req.Title,
		Description:    req.Description,
		Venue:          req.Venue,
		Agenda:         req.Agenda,
		Capacity:       req.Capacity,
		Speakers:       toSpeakerInputs(req.Speakers),
		IdempotencyKey: idempotencyKey,
	}
	if req.Date != nil {
		in.Date = req.Date.Time
	}
	return in
}

func toEditInput(req editEventRequest) ports.EditEventInput {
	in := ports.EditEventInput{
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		Agenda:      req.Agenda,
		Capacity:    req.Capacity,
	}
	if req.Date != nil {
		t := req.Date.Time
		in.Date = &t
	}
	if req.Speakers != nil {
		speakers := toSpeakerInputs(*req.Speakers)
		in.Speakers = &speakers
	}
	return in
}

func toSpeakerInputs(reqs []speakerRequest) []ports.SpeakerInput {
	out := make([]ports.SpeakerInput, 0, len(reqs))
	for _, s := range reqs {
		out = append(out, ports.SpeakerInput{Name: s.Name, Designation: s.Designation})
	}
	return out
}
