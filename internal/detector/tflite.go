package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/cpuspec"
	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/logger"
)

// TFLiteDetector runs a YOLOv8 TFLite export in process. The interpreter is
// not reentrant, so calls are serialised.
type TFLiteDetector struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	name        string
	inputSize   int
	accelerated bool
	settings    conf.DetectorSettings
	closed      bool
}

// NewTFLiteDetector loads settings.ModelPath and allocates an interpreter
func NewTFLiteDetector(settings *conf.DetectorSettings) (*TFLiteDetector, error) {
	start := time.Now()
	log := GetLogger()

	modelData, err := os.ReadFile(settings.ModelPath)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryModelLoad).
			Context("model_path", filepath.Base(settings.ModelPath)).
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Category(errors.CategoryModelInit).
			Context("model_path", filepath.Base(settings.ModelPath)).
			Context("model_size_mb", len(modelData)/1024/1024).
			Timing("model-init", time.Since(start)).
			Build()
	}

	threads := settings.Threads
	if threads <= 0 {
		threads = cpuspec.OptimalThreads()
	}

	options := tflite.NewInterpreterOptions()
	accelerated := false
	if settings.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: thread count bounded by CPU count
		if delegate == nil {
			log.Warn("failed to create XNNPACK delegate, falling back to default CPU")
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
			accelerated = true
		}
	} else {
		options.SetNumThread(threads)
	}
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.Newf("cannot create interpreter").
			Category(errors.CategoryModelInit).
			Context("threads", threads).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Category(errors.CategoryModelInit).
			Build()
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || input.NumDims() != 4 || input.Dim(1) != input.Dim(2) || input.Dim(3) != 3 {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("model input is not a square RGB image tensor").
			Category(errors.CategoryModelInit).
			Build()
	}
	if input.Type() != tflite.Float32 {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("model input type %v is not float32", input.Type()).
			Category(errors.CategoryModelInit).
			Build()
	}

	d := &TFLiteDetector{
		model:       model,
		interpreter: interpreter,
		name:        modelName(settings),
		inputSize:   input.Dim(1),
		accelerated: accelerated,
		settings:    *settings,
	}

	log.Info("YOLOv8 model initialized",
		logger.String("model", d.name),
		logger.Int("input_size", d.inputSize),
		logger.Int("threads", threads),
		logger.Bool("xnnpack", accelerated),
		logger.Duration("elapsed", time.Since(start)))

	return d, nil
}

// modelName prefers the configured name; without one it uses the model file name
func modelName(settings *conf.DetectorSettings) string {
	if settings.Model != "" {
		return settings.Model
	}
	return strings.TrimSuffix(filepath.Base(settings.ModelPath), filepath.Ext(settings.ModelPath))
}

// Detect runs the model on frame. The model input size is fixed at export
// time; a different inputSize is ignored with the model size used instead.
func (d *TFLiteDetector) Detect(ctx context.Context, frame *glare.Frame, threshold float64, inputSize int) ([]glare.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if inputSize != d.inputSize {
		GetLogger().Debug("requested input size differs from model input",
			logger.Int("requested", inputSize),
			logger.Int("model", d.inputSize))
	}

	canvas, lb := letterboxImage(frame.Image(), d.inputSize)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.Newf("detector is closed").Category(errors.CategoryDetector).Build()
	}

	input := d.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, errors.Newf("cannot get input tensor").Category(errors.CategoryDetector).Build()
	}
	fillTensor(input.Float32s(), canvas)

	start := time.Now()
	if status := d.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("tensor invoke failed: %v", status).
			Category(errors.CategoryDetector).
			Timing("model-invoke", time.Since(start)).
			Build()
	}

	output := d.interpreter.GetOutputTensor(0)
	if output == nil {
		return nil, errors.Newf("cannot get output tensor").Category(errors.CategoryDetector).Build()
	}
	dims := make([]int, output.NumDims())
	for i := range dims {
		dims[i] = output.Dim(i)
	}

	cands, err := decodeYOLO(output.Float32s(), dims, threshold, d.inputSize)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryDetector).Build()
	}
	kept := nonMaxSuppression(cands, d.settings.IOUThreshold, d.settings.MaxDetections)

	detections := make([]glare.Detection, 0, len(kept))
	for _, c := range kept {
		detections = append(detections, glare.Detection{
			ClassID:    c.classID,
			Confidence: c.score,
			Box:        lb.toFrame(c.x1, c.y1, c.x2, c.y2),
		})
	}
	return detections, nil
}

func (d *TFLiteDetector) Name() string      { return d.name }
func (d *TFLiteDetector) Accelerated() bool { return d.accelerated }

// Close releases the interpreter and model. It is safe to call more than once.
func (d *TFLiteDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.interpreter.Delete()
	d.model.Delete()
	return nil
}
