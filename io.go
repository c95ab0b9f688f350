package frcnn

import (
	"fmt"
	"io"

	ort "github.com/yalue/onnxruntime_go"
)

// QueryModel writes the input and output tensor information of the ONNX
// model file in human readable format
func QueryModel(w io.Writer, modelFile string) error {

	if err := InitEnvironment(); err != nil {
		return err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelFile)

	if err != nil {
		return fmt.Errorf("error querying model tensors: %w", err)
	}

	fmt.Fprintf(w, "Model Input Number: %d, Output Number: %d\n", len(inputs), len(outputs))

	writeTensors(w, "Input tensors", inputs)
	writeTensors(w, "Output tensors", outputs)

	return nil
}

// writeTensors writes a list of tensor information under a heading
func writeTensors(w io.Writer, heading string, attrs []ort.InputOutputInfo) {

	fmt.Fprintf(w, "%s:\n", heading)

	for _, attr := range attrs {
		fmt.Fprintf(w, "  %s\n", formatTensor(attr))
	}
}

// formatTensor returns tensor information as a single line
func formatTensor(attr ort.InputOutputInfo) string {
	return fmt.Sprintf("name=%s, dims=%v, type=%s", attr.Name, attr.Dimensions,
		attr.DataType)
}
