package estate

import "time"

// Status of a request. The lifecycle is one-directional,
// pending → in_progress → completed, and driven by back-office action;
// this client only ever creates requests, which start as pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Request is a client-side estate request. Immutable after creation except
// for status refreshes.
type Request struct {
	ID                     string
	UserID                 string
	PropertyType           string
	Location               string
	Budget                 string
	Bedrooms               string
	Bathrooms              string
	Surface                string
	District               string
	AdditionalRequirements string
	Status                 Status
	CreatedAt              time.Time
}

// Draft accumulates wizard input before submission. Budget is a display
// string, not a parsed amount. Blank optional fields stay out of the
// submitted payload entirely; they are never sent as empty strings.
type Draft struct {
	PropertyType           string `json:"propertyType"`
	Location               string `json:"location"`
	Budget                 string `json:"budget"`
	Bedrooms               string `json:"bedrooms,omitempty"`
	Bathrooms              string `json:"bathrooms,omitempty"`
	Surface                string `json:"surface,omitempty"`
	District               string `json:"district,omitempty"`
	AdditionalRequirements string `json:"additionalRequirements,omitempty"`
}

// serverRequest is the wire shape. The server's identity field is _id; the
// rename to ID happens at this boundary and nowhere else.
type serverRequest struct {
	ID                     string    `json:"_id"`
	UserID                 string    `json:"userId"`
	PropertyType           string    `json:"propertyType"`
	Location               string    `json:"location"`
	Budget                 string    `json:"budget"`
	Bedrooms               string    `json:"bedrooms,omitempty"`
	Bathrooms              string    `json:"bathrooms,omitempty"`
	Surface                string    `json:"surface,omitempty"`
	District               string    `json:"district,omitempty"`
	AdditionalRequirements string    `json:"additionalRequirements,omitempty"`
	Status                 Status    `json:"status"`
	CreatedAt              time.Time `json:"createdAt"`
}

func fromServer(s serverRequest) Request {
	return Request{
		ID:                     s.ID,
		UserID:                 s.UserID,
		PropertyType:           s.PropertyType,
		Location:               s.Location,
		Budget:                 s.Budget,
		Bedrooms:               s.Bedrooms,
		Bathrooms:              s.Bathrooms,
		Surface:                s.Surface,
		District:               s.District,
		AdditionalRequirements: s.AdditionalRequirements,
		Status:                 s.Status,
		CreatedAt:              s.CreatedAt,
	}
}

func toServer(r Request) serverRequest {
	return serverRequest{
		ID:                     r.ID,
		UserID:                 r.UserID,
		PropertyType:           r.PropertyType,
		Location:               r.Location,
		Budget:                 r.Budget,
		Bedrooms:               r.Bedrooms,
		Bathrooms:              r.Bathrooms,
		Surface:                r.Surface,
		District:               r.District,
		AdditionalRequirements: r.AdditionalRequirements,
		Status:                 r.Status,
		CreatedAt:              r.CreatedAt,
	}
}
