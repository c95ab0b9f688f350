package frcnn

import (
	"context"
	"fmt"

	"github.com/swdee/go-frcnn/postprocess"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Output is a single output tensor copied out of the runtime
type Output struct {
	// Name of the output tensor
	Name string
	// Shape of the output tensor
	Shape []int64
	// BufFloat holds the tensor data of floating point outputs
	BufFloat []float32
	// BufInt holds the tensor data of integer outputs
	BufInt []int64
}

// Outputs are the outputs of an inference run
type Outputs struct {
	Output []Output
}

// Get returns the output with the given name
func (o *Outputs) Get(name string) (*Output, error) {

	for i := range o.Output {
		if o.Output[i].Name == name {
			return &o.Output[i], nil
		}
	}

	return nil, fmt.Errorf("output %q not found", name)
}

// Inference runs the model on the batch of images
func (r *Runtime) Inference(batch *Batch) (*Outputs, error) {

	if r.session == nil {
		return nil, fmt.Errorf("runtime is closed")
	}

	data, err := batch.Data()

	if err != nil {
		return nil, err
	}

	images, err := r.imagesTensor(batch.Shape(), data)

	if err != nil {
		return nil, fmt.Errorf("error creating images tensor: %w", err)
	}

	defer images.Destroy()

	shapes := batch.ImageShapes()
	sizes := make([]int64, 0, len(shapes)*2)

	for _, s := range shapes {
		sizes = append(sizes, int64(s.Height), int64(s.Width))
	}

	imageSizes, err := ort.NewTensor(ort.NewShape(int64(len(shapes)), 2), sizes)

	if err != nil {
		return nil, fmt.Errorf("error creating image sizes tensor: %w", err)
	}

	defer imageSizes.Destroy()

	// nil outputs are allocated by onnxruntime as their shapes depend on
	// the number of proposals
	outputs := make([]ort.Value, len(outputNames))

	if err := r.session.Run([]ort.Value{images, imageSizes}, outputs); err != nil {
		return nil, fmt.Errorf("error running model: %w", err)
	}

	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	res := &Outputs{
		Output: make([]Output, len(outputs)),
	}

	for i, v := range outputs {
		res.Output[i], err = copyOutput(outputNames[i], v)

		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

// imagesTensor wraps the batch data in the tensor type the Model expects
func (r *Runtime) imagesTensor(shape []int64, data []float32) (ort.Value, error) {

	if r.inputFloat16 {
		t, err := ort.NewCustomDataTensor(ort.NewShape(shape...),
			float32ToFloat16Bytes(data), ort.TensorElementDataTypeFloat16)

		if err != nil {
			return nil, err
		}

		return t, nil
	}

	t, err := ort.NewTensor(ort.NewShape(shape...), data)

	if err != nil {
		return nil, err
	}

	return t, nil
}

// copyOutput copies the data of an output value into Go memory
func copyOutput(name string, v ort.Value) (Output, error) {

	out := Output{
		Name:  name,
		Shape: append([]int64(nil), v.GetShape()...),
	}

	switch t := v.(type) {
	case *ort.Tensor[float32]:
		out.BufFloat = append([]float32(nil), t.GetData()...)

	case *ort.Tensor[int64]:
		out.BufInt = append([]int64(nil), t.GetData()...)

	case *ort.CustomDataTensor:
		out.BufFloat = float16BytesToFloat32(t.GetData())

	default:
		return Output{}, fmt.Errorf("output %q has unsupported type %T", name, v)
	}

	return out, nil
}

// RoIHeads converts the outputs into the box head predictions for each
// image of the batch with the given shapes
func (o *Outputs) RoIHeads(shapes []postprocess.ImageShape) (*postprocess.RoIHeadsOutput, error) {

	logits, err := o.matrix(outputClassLogits)

	if err != nil {
		return nil, err
	}

	regression, err := o.matrix(outputBoxRegression)

	if err != nil {
		return nil, err
	}

	proposals, err := o.matrix(outputProposals)

	if err != nil {
		return nil, err
	}

	counts, err := o.Get(outputProposalCounts)

	if err != nil {
		return nil, err
	}

	if len(counts.BufInt) != len(shapes) {
		return nil, fmt.Errorf("%w: %d proposal counts for %d images",
			postprocess.ErrShapeMismatch, len(counts.BufInt), len(shapes))
	}

	res := &postprocess.RoIHeadsOutput{
		ClassLogits:   logits,
		BoxRegression: regression,
		Proposals:     make([]*mat.Dense, len(shapes)),
		ImageShapes:   shapes,
	}

	offset := 0
	total := 0

	if proposals != nil {
		total, _ = proposals.Dims()
	}

	for i, c := range counts.BufInt {

		n := int(c)

		if n < 0 || offset+n > total {
			return nil, fmt.Errorf("%w: proposal count %d of image %d exceeds %d proposals",
				postprocess.ErrShapeMismatch, n, i, total)
		}

		if n > 0 {
			res.Proposals[i] = mat.DenseCopyOf(proposals.Slice(offset, offset+n, 0, 4))
		}

		offset += n
	}

	if offset != total {
		return nil, fmt.Errorf("%w: proposal counts sum to %d, model returned %d",
			postprocess.ErrShapeMismatch, offset, total)
	}

	return res, nil
}

// matrix returns the named two dimensional output as a matrix, nil if it
// has no rows
func (o *Outputs) matrix(name string) (*mat.Dense, error) {

	out, err := o.Get(name)

	if err != nil {
		return nil, err
	}

	if len(out.Shape) != 2 {
		return nil, fmt.Errorf("%w: output %q has shape %v, expected 2 dimensions",
			postprocess.ErrShapeMismatch, name, out.Shape)
	}

	rows, cols := int(out.Shape[0]), int(out.Shape[1])

	if rows*cols != len(out.BufFloat) {
		return nil, fmt.Errorf("%w: output %q has %d values for shape %v",
			postprocess.ErrShapeMismatch, name, len(out.BufFloat), out.Shape)
	}

	if rows == 0 {
		return nil, nil
	}

	data := make([]float64, len(out.BufFloat))

	for i, v := range out.BufFloat {
		data[i] = float64(v)
	}

	return mat.NewDense(rows, cols, data), nil
}

// Forward runs the Model on the batch and returns its box head predictions
func (r *Runtime) Forward(ctx context.Context, batch *Batch) (*postprocess.RoIHeadsOutput, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs, err := r.Inference(batch)

	if err != nil {
		return nil, err
	}

	r.log.Debug("inference complete", zap.Int("images", batch.Len()),
		zap.Int64s("input_shape", batch.Shape()))

	return outputs.RoIHeads(batch.ImageShapes())
}
