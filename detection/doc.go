/*
Package detection defines the capability interfaces for object detection:
DetectImageObjects, implemented by detectors that locate objects in images,
and Element, a holder of a single detection's bounding box and
classification.

Detector implementations register themselves with RegisterDetector so they
can be discovered and created by name.  Implementations whose runtime
dependencies are not present on the host report themselves as unusable and
are skipped by Detectors().
*/
package detection
