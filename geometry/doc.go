// Package geometry computes the vertex and texture-coordinate quads that
// map a source image onto an output viewport.
//
// The computation takes the output size, the image size, a [Rotation],
// optional horizontal/vertical flips and a [ScaleType]:
//
//   - [CenterCrop] keeps the vertex quad at full screen and insets the
//     texture coordinates so the overflowing image edges are cropped.
//   - [Fit] keeps the canonical texture coordinates and shrinks the vertex
//     quad so the whole image is visible (letterbox or pillarbox).
//
// # Corner Order
//
// Both quads hold 4 corners of 2 floats each, in triangle-strip order:
//
//	index 0: bottom-left
//	index 1: bottom-right
//	index 2: top-left
//	index 3: top-right
//
// Vertex positions are normalized device coordinates ([-1, 1], y up).
// Texture coordinates are in [0, 1] with v pointing down the image, so the
// first uploaded pixel row is at v = 0.
package geometry
