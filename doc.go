// Package motion implements the motion side of a block-based video encoder:
// fractional-sample motion compensation, motion vector clamping, a rate
// constrained motion search and joint bi-prediction refinement.
//
// Pictures are stored with padded borders so prediction can address samples
// up to one largest coding unit outside the picture. Vectors are in quarter
// luma samples. Costs are distortion (SAD or SATD) plus a lambda-weighted
// estimate of the vector bits.
//
// The package supports:
//   - 8-tap luma and 4-tap chroma interpolation at 8 to 12 bits
//   - Expanding diamond, raster and refinement search stages
//   - Half and quarter sample refinement
//   - Joint bi-prediction refinement against the doubled original
//   - Row-pipelined estimation of whole frames on several goroutines
//
// Basic usage for one block:
//
//	est, err := motion.NewEstimator(motion.DefaultOptions())
//	if err != nil { ... }
//	defer est.Close()
//	res := est.MotionSearch(cur, refs, motion.Block{X: 16, Y: 16, W: 16, H: 16}, nil, motion.MV{})
//
// Basic usage for a frame:
//
//	f, err := motion.EstimateFrame(ctx, cur, [2]motion.RefList{l0, l1}, motion.DefaultOptions())
package motion
