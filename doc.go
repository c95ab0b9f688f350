/*
go-frcnn provides a Faster R-CNN object detector for Go that keeps the full
class probability distribution of every detection rather than just the top
scoring label.

The detector runs a ResNet-50-FPN backbone, region proposal network and RoI
box head exported to ONNX through ONNX Runtime, then performs the RoI head
post processing (box decoding, score thresholding, class-wise Non-Maximum
Suppression) in Go using the postprocess package.

The shared library for ONNX Runtime is located via the
ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable, if unset the platform's
default library search path is used.

See example code and usage in the example subdirectory.
*/
package frcnn
