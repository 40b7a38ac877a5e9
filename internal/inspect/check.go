package inspect

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"eventsds/internal/model"
	"eventsds/internal/sink"
)

type LengthStats struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// Report summarizes a windows dataset and lists every broken invariant.
type Report struct {
	Path       string               `json:"path"`
	Strategy   model.WindowStrategy `json:"strategy,omitempty"`
	Windows    int                  `json:"windows"`
	BothEmpty  int                  `json:"both_empty"`
	EmptyOW    int                  `json:"empty_ow"`
	EmptyPW    int                  `json:"empty_pw"`
	OW         LengthStats          `json:"ow_length"`
	PW         LengthStats          `json:"pw_length"`
	Violations []string             `json:"violations"`
}

func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Check reads the dataset at path. strategy may be empty, in which case
// only the both-empty rule is enforced.
func Check(path string, strategy model.WindowStrategy) (Report, error) {
	rep := Report{Path: path, Strategy: strategy}
	var owAcc, pwAcc lengthAcc
	owLens := make([]float64, 0, scanChunk)
	pwLens := make([]float64, 0, scanChunk)
	n, err := sink.Scan(path, scanChunk, func(rows []model.WindowSample) error {
		owLens, pwLens = owLens[:0], pwLens[:0]
		for _, r := range rows {
			ow, pw := len(r.OWEvents), len(r.PWEvents)
			owLens = append(owLens, float64(ow))
			pwLens = append(pwLens, float64(pw))
			if ow == 0 {
				rep.EmptyOW++
			}
			if pw == 0 {
				rep.EmptyPW++
			}
			if ow == 0 && pw == 0 {
				rep.BothEmpty++
			}
		}
		owAcc.add(owLens)
		pwAcc.add(pwLens)
		return nil
	})
	if err != nil {
		return rep, err
	}
	rep.Windows = n
	rep.Violations = Violations(rep)
	rep.OW = owAcc.stats()
	rep.PW = pwAcc.stats()
	return rep, nil
}

// Violations applies the dataset contract to the counts in rep.
func Violations(rep Report) []string {
	var out []string
	if rep.BothEmpty > 0 {
		out = append(out, fmt.Sprintf("%d windows have both OW and PW empty", rep.BothEmpty))
	}
	switch rep.Strategy {
	case model.WindowAsynOW:
		if rep.EmptyOW > 0 {
			out = append(out, fmt.Sprintf("%d windows have an empty OW under asynOW", rep.EmptyOW))
		}
	case model.WindowWithinPW, model.WindowAsynPW:
		if rep.EmptyPW > 0 {
			out = append(out, fmt.Sprintf("%d windows have an empty PW under %s", rep.EmptyPW, rep.Strategy))
		}
	}
	return out
}

const scanChunk = 8192

// lengthAcc folds list lengths chunk by chunk so memory stays bounded by the
// scan chunk size.
type lengthAcc struct {
	n        int
	sum      float64
	min, max float64
}

func (a *lengthAcc) add(xs []float64) {
	if len(xs) == 0 {
		return
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	if a.n == 0 || lo < a.min {
		a.min = lo
	}
	if a.n == 0 || hi > a.max {
		a.max = hi
	}
	a.sum += floats.Sum(xs)
	a.n += len(xs)
}

func (a *lengthAcc) stats() LengthStats {
	if a.n == 0 {
		return LengthStats{}
	}
	return LengthStats{Min: a.min, Mean: a.sum / float64(a.n), Max: a.max}
}
