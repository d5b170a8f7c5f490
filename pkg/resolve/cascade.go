package resolve

import (
	"context"
	"fmt"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

// cascade runs strategies in order and accepts the first stage whose best
// candidate reaches threshold. Stage errors are logged and the next stage
// runs; the first error is kept on an unresolved result.
func (e *Engine) cascade(ctx context.Context, kind entity.Kind, strategies []Strategy, threshold float64, in Input) entity.Result {
	res := entity.Result{Query: in.Query, Kind: kind}

	for _, st := range strategies {
		req, ok := st.Plan(in)
		if !ok {
			continue
		}
		if req.PageSize <= 0 {
			req.PageSize = e.cfg.PageSize
		}

		page, err := e.src.Search(ctx, req)
		if err != nil {
			e.logger.WarnContext(ctx, "search stage failed",
				"kind", kind.String(), "stage", st.Name, "text", req.Text, "error", err)
			if res.Err == nil {
				res.Err = fmt.Errorf("%s stage %s: %w", kind, st.Name, err)
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		best, found := e.best(kind, in.Query, page.Records)
		if !found {
			e.logger.DebugContext(ctx, "no candidates", "kind", kind.String(), "stage", st.Name, "text", req.Text)
			continue
		}
		res.Confidence = max(res.Confidence, best.Confidence)
		if best.Confidence >= threshold {
			match := best.Record
			res.Match = &match
			res.Confidence = best.Confidence
			res.Stage = st.Name
			res.Err = nil
			e.logger.DebugContext(ctx, "stage accepted",
				"kind", kind.String(), "stage", st.Name, "id", match.ID, "confidence", best.Confidence)
			return res
		}
		e.logger.DebugContext(ctx, "stage below threshold",
			"kind", kind.String(), "stage", st.Name, "confidence", best.Confidence, "threshold", threshold)
	}
	return res
}

// best returns the highest-scoring eligible record. Ties keep the source's
// order.
func (e *Engine) best(kind entity.Kind, q entity.Query, records []entity.Record) (entity.Scored, bool) {
	var top entity.Scored
	found := false
	for i := range records {
		rec := &records[i]
		if !rec.Eligible() {
			continue
		}
		conf := e.scorer.Score(kind, q, rec)
		if !found || conf > top.Confidence {
			top = entity.Scored{Record: *rec, Confidence: conf}
			found = true
		}
	}
	return top, found
}
