package model

import "errors"

// MinTargetResolutionHeight is the smallest height FFmpeg scaling accepts
// from clients.
const MinTargetResolutionHeight = 144

var ErrResolutionTooSmall = errors.New("target resolution height must be at least 144")

// EditOptions describes the requested edit for a processing run. Optional
// fields are pointers so "absent" and "zero" stay distinguishable.
type EditOptions struct {
	CutStartTime           *float64 `json:"cutStartTime,omitempty"`
	CutEndTime             *float64 `json:"cutEndTime,omitempty"`
	Mute                   bool     `json:"mute"`
	TargetResolutionHeight *int     `json:"targetResolutionHeight,omitempty"`
}

// Validate enforces the request contract. Cut-time inconsistencies are not
// errors: negative starts clamp to zero and an end at or before the start is
// dropped later by the command builder.
func (o EditOptions) Validate() error {
	if o.TargetResolutionHeight != nil && *o.TargetResolutionHeight < MinTargetResolutionHeight {
		return ErrResolutionTooSmall
	}
	return nil
}
