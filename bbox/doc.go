/*
Package bbox provides the AxisAlignedBoundingBox geometric primitive used to
describe the location of detected objects.

Boxes are defined by a minimum and maximum vertex of equal dimensionality.
Object detectors produce 2D boxes from [x1, y1, x2, y2] corner coordinates,
where the minimum vertex is [x1, y1] and the maximum vertex is [x2, y2].
*/
package bbox
