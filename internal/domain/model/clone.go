package model

import (
	"slices"
	"time"
)

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of s.
func (s *Submission) Clone() *Submission {
	c := *s
	c.ExecutionTimeSeconds = cloneFloat(s.ExecutionTimeSeconds)
	c.MemoryUsageKB = cloneInt64(s.MemoryUsageKB)
	return &c
}

// Clone returns a deep copy of p.
func (p *SkillProgress) Clone() *SkillProgress {
	c := *p
	c.PreviousLevel = cloneFloat(p.PreviousLevel)
	c.LastActivityAt = cloneTime(p.LastActivityAt)
	c.Evidence = slices.Clone(p.Evidence)
	return &c
}

// Clone returns a deep copy of f.
func (f *Feedback) Clone() *Feedback {
	c := *f
	if f.Categories != nil {
		c.Categories = make([]CategoryScore, len(f.Categories))
		for i, cs := range f.Categories {
			cs.ConfidenceLevel = cloneFloat(cs.ConfidenceLevel)
			cs.ImprovementSinceLast = cloneFloat(cs.ImprovementSinceLast)
			c.Categories[i] = cs
		}
	}
	return &c
}

// Clone returns a deep copy of p.
func (p *PlanProgress) Clone() *PlanProgress {
	c := *p
	c.CompletedActionIDs = slices.Clone(p.CompletedActionIDs)
	return &c
}
