package me

import (
	"github.com/deepteams/motion/internal/mc"
	"github.com/deepteams/motion/internal/picture"
)

// BiResult is the outcome of a joint bi-prediction refinement.
type BiResult struct {
	MV     [2]mc.MV
	RefIdx [2]int
	MVBits [2]int
	// Cost is the best joint cost found. It never exceeds the better of the
	// two uni-prediction costs the refinement started from.
	Cost uint64
	// Dist is the distortion behind Cost. After an improvement it is the
	// halved distortion against the doubled original.
	Dist uint32
	// Improved reports whether any update beat the uni-prediction baseline.
	Improved    bool
	Iterations  int
	Evaluations int
}

// SearchBi refines a vector pair for block b starting from the two
// uni-prediction results. The list with the lower cost is held fixed and the
// other list is searched against the doubled original minus the held
// prediction, over every reference of that list. Lists then swap roles, for
// up to BiIterations rounds or until a round changes nothing. Only strict
// cost improvements are accepted.
func (s *Searcher) SearchBi(cur *picture.Picture, refs [2]RefList, b Block, mvp [2]mc.MV, uni [2]Result) BiResult {
	res := BiResult{
		MV:     [2]mc.MV{uni[0].MV, uni[1].MV},
		RefIdx: [2]int{uni[0].RefIdx, uni[1].RefIdx},
		MVBits: [2]int{uni[0].MVBits, uni[1].MVBits},
		Cost:   uni[0].Cost,
		Dist:   uni[0].Dist,
	}
	if uni[1].Cost < uni[0].Cost {
		res.Cost, res.Dist = uni[1].Cost, uni[1].Dist
	}
	if len(refs[0]) == 0 || len(refs[1]) == 0 {
		return res
	}
	for l := range refs {
		mustf(len(refs[l]) <= MaxRefs, "%d references in list %d", len(refs[l]), l)
		mustf(res.RefIdx[l] >= 0 && res.RefIdx[l] < len(refs[l]), "list %d reference index %d of %d", l, res.RefIdx[l], len(refs[l]))
	}

	s.load(cur, b)
	s.bi = true
	s.evals = 0
	defer func() {
		s.bi = false
		s.heldBits = 0
		s.org = s.base
	}()

	held := 0
	if uni[1].Cost < uni[0].Cost {
		held = 1
	}
	for it := 0; it < s.cfg.BiIterations; it++ {
		res.Iterations++
		s.buildBiOrg(refs[held][res.RefIdx[held]], res.MV[held])
		s.heldBits = res.MVBits[held]

		other := 1 - held
		changed := false
		for ri, ref := range refs[other] {
			start := mvp[other]
			if ri == res.RefIdx[other] {
				start = res.MV[other]
			}
			st := s.searchRef(ref, ri, len(refs[other]), mvp[other], start)
			if st.cost < res.Cost {
				res.Cost = st.cost
				res.Dist = st.dist
				res.MV[other] = st.mv
				res.RefIdx[other] = ri
				res.MVBits[other] = st.bits
				res.Improved = true
				changed = true
			}
		}
		if !changed {
			break
		}
		held = other
	}
	res.Evaluations = s.evals
	return res
}

// buildBiOrg predicts the held list and stores 2*org - prediction as the
// search target.
func (s *Searcher) buildBiOrg(ref *picture.Picture, mv mc.MV) {
	b := s.blk
	pair := mc.MVPair{Original: mv, Clamped: mc.Clamp(b.X, b.Y, b.W, b.H, s.picW, s.picH, mv)}
	s.comp.Luma(s.held, b.W, ref.Y, b.X, b.Y, b.W, b.H, pair)
	n := b.W * b.H
	org, held, dst := s.base[:n], s.held[:n], s.biOrg[:n]
	for i := range dst {
		dst[i] = 2*org[i] - int16(held[i])
	}
	s.org = s.biOrg
}
