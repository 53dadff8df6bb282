package detect

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/bytelocker/bytelocker/internal/video"
)

const (
	onnxInputWidth  = 640
	onnxInputHeight = 640
	onnxPredictions = 8400
)

var ortInit sync.Once

// ONNXLocalizer runs a YOLO-family ONNX detection model as the external
// person/face localizer. The model is expected to take a 1x3xHxW float32
// tensor and emit [1, 5, N] predictions (cx, cy, w, h, confidence).
type ONNXLocalizer struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	class     ObjectClass
	threshold float32
}

// ONNXConfig configures an ONNX localizer
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	Class       ObjectClass
	Threshold   float32
}

// NewONNXLocalizer initializes the ONNX runtime (once per process) and
// creates an inference session for the given model.
func NewONNXLocalizer(cfg ONNXConfig) (*ONNXLocalizer, error) {
	var initErr error
	ortInit.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", initErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())
	options.SetInterOpNumThreads(runtime.NumCPU())

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, onnxInputHeight, onnxInputWidth))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 5, onnxPredictions))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	class := cfg.Class
	if class == "" {
		class = ClassPerson
	}

	return &ONNXLocalizer{
		session:   session,
		input:     inputTensor,
		output:    outputTensor,
		class:     class,
		threshold: threshold,
	}, nil
}

// Locate runs inference on a frame and returns raw objects in frame pixel
// coordinates. The frame is never mutated.
func (l *ONNXLocalizer) Locate(frame *video.Frame) ([]RawObject, error) {
	resized := imaging.Resize(frame.Image(), onnxInputWidth, onnxInputHeight, imaging.Linear)
	l.prepareInput(resized)

	if err := l.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	return l.decode(l.output.GetData(), frame.Width, frame.Height), nil
}

// Close releases the session and its tensors
func (l *ONNXLocalizer) Close() {
	if l.session != nil {
		l.session.Destroy()
	}
	if l.input != nil {
		l.input.Destroy()
	}
	if l.output != nil {
		l.output.Destroy()
	}
}

// prepareInput fills the input tensor with CHW-ordered normalized pixels
func (l *ONNXLocalizer) prepareInput(img *image.NRGBA) {
	buffer := l.input.GetData()
	channelSize := onnxInputWidth * onnxInputHeight
	for y := 0; y < onnxInputHeight; y++ {
		offset := y * onnxInputWidth
		for x := 0; x < onnxInputWidth; x++ {
			i := offset + x
			px := img.NRGBAAt(x, y)
			buffer[i] = float32(px.R) / 255.0
			buffer[channelSize+i] = float32(px.G) / 255.0
			buffer[channelSize*2+i] = float32(px.B) / 255.0
		}
	}
}

// decode converts model predictions back to frame pixel coordinates
func (l *ONNXLocalizer) decode(predictions []float32, frameWidth, frameHeight int) []RawObject {
	scaleX := float64(frameWidth) / onnxInputWidth
	scaleY := float64(frameHeight) / onnxInputHeight

	var objects []RawObject
	for i := 0; i < onnxPredictions; i++ {
		confidence := predictions[4*onnxPredictions+i]
		if confidence < l.threshold {
			continue
		}

		cx := float64(predictions[i])
		cy := float64(predictions[onnxPredictions+i])
		w := float64(predictions[2*onnxPredictions+i])
		h := float64(predictions[3*onnxPredictions+i])

		bbox := BBox{
			Left:   clamp((cx-w/2)*scaleX, 0, float64(frameWidth)),
			Top:    clamp((cy-h/2)*scaleY, 0, float64(frameHeight)),
			Right:  clamp((cx+w/2)*scaleX, 0, float64(frameWidth)),
			Bottom: clamp((cy+h/2)*scaleY, 0, float64(frameHeight)),
		}
		objects = append(objects, RawObject{
			BBox:       bbox,
			Class:      l.class,
			Confidence: float64(confidence),
		})
	}
	return objects
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
