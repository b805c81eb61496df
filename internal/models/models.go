package models

import (
	"time"

	"github.com/lehigh-university-libraries/snapcard/internal/card"
	"github.com/lehigh-university-libraries/snapcard/internal/linkcheck"
)

type CardStatus string

const (
	StatusDone   CardStatus = "done"
	StatusFailed CardStatus = "failed"
)

// CardSession is one screenshot submitted through the web interface
type CardSession struct {
	ID          string             `json:"id"`
	ImageName   string             `json:"image_name"`
	ImagePath   string             `json:"-"`
	Source      string             `json:"source"` // "upload" or "url"
	Status      CardStatus         `json:"status"`
	Record      *card.Record       `json:"record,omitempty"`
	CardPath    string             `json:"-"`
	CardURL     string             `json:"card_url,omitempty"`
	Published   []string           `json:"published,omitempty"`
	BrokenLinks []linkcheck.Result `json:"broken_links,omitempty"`
	FailedStage string             `json:"failed_stage,omitempty"`
	ErrorKind   string             `json:"error_kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	RawResponse string             `json:"raw_response,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt time.Time          `json:"completed_at"`
}
