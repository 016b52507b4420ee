package vision

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
)

// ImageNet normalization (standard for torchvision models).
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

const (
	width  = 224
	height = 224
)

// Describer produces a short textual description of an uploaded image by
// running a local ONNX classifier and joining the top labels. It is an
// optional enrichment: when the model cannot be loaded, callers fall back to
// an empty description.
type Describer struct {
	mu sync.Mutex

	modelPath  string
	labelsPath string
	topK       int
	libPath    string

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	inited  bool
}

func NewDescriber(modelPath, labelsPath, onnxLibPath string, topK int) *Describer {
	if topK <= 0 {
		topK = 3
	}
	return &Describer{
		modelPath:  modelPath,
		labelsPath: labelsPath,
		topK:       topK,
		libPath:    onnxLibPath,
	}
}

// Describe returns a comma-joined list of the most likely labels.
func (d *Describer) Describe(imageData []byte) (string, error) {
	if err := d.initOnce(); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	inputData := preprocess(img)

	d.mu.Lock()
	inData := d.input.GetData()
	if len(inData) < len(inputData) {
		d.mu.Unlock()
		return "", fmt.Errorf("input tensor size %d < preprocessed %d", len(inData), len(inputData))
	}
	copy(inData, inputData)
	err = d.session.Run()
	d.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("onnx run: %w", err)
	}

	return d.topLabels(), nil
}

func (d *Describer) topLabels() string {
	outData := d.output.GetData()
	k := d.topK
	if k > len(d.labels) {
		k = len(d.labels)
	}
	if k > len(outData) {
		k = len(outData)
	}

	type idxScore struct {
		idx   int
		score float32
	}
	scored := make([]idxScore, len(outData))
	for i, s := range outData {
		scored[i] = idxScore{i, s}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	labels := make([]string, 0, k)
	for i := 0; i < k; i++ {
		if idx := scored[i].idx; idx < len(d.labels) && d.labels[idx] != "" {
			labels = append(labels, d.labels[idx])
		}
	}
	return strings.Join(labels, ", ")
}

// initOnce loads the ONNX shared library, labels, and session.
func (d *Describer) initOnce() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inited {
		return nil
	}

	if d.libPath != "" {
		ort.SetSharedLibraryPath(d.libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx init environment: %w", err)
	}

	labels, err := loadLabels(d.labelsPath)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	d.labels = labels

	inputs, outputs, err := ort.GetInputOutputInfo(d.modelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inputs[0].Dimensions)
	if err != nil {
		return fmt.Errorf("onnx new input tensor: %w", err)
	}
	d.input = inputTensor

	outputTensor, err := ort.NewEmptyTensor[float32](outputs[0].Dimensions)
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("onnx new output tensor: %w", err)
	}
	d.output = outputTensor

	inputNames := make([]string, len(inputs))
	for i := range inputs {
		inputNames[i] = inputs[i].Name
	}
	outputNames := make([]string, len(outputs))
	for i := range outputs {
		outputNames[i] = outputs[i].Name
	}

	session, err := ort.NewAdvancedSession(d.modelPath, inputNames, outputNames,
		[]ort.Value{d.input}, []ort.Value{d.output}, nil)
	if err != nil {
		outputTensor.Destroy()
		inputTensor.Destroy()
		return fmt.Errorf("onnx new session: %w", err)
	}
	d.session = session
	d.inited = true
	return nil
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		labels = append(labels, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// preprocess resizes img to 224x224, RGB, NCHW layout, float32 with ImageNet
// normalization.
func preprocess(img image.Image) []float32 {
	bounds := img.Bounds()

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	out := make([]float32, 1*3*height*width)
	const size = width * height

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			c := dst.RGBAAt(x, y)
			r, g, b := float32(c.R)/255.0, float32(c.G)/255.0, float32(c.B)/255.0
			out[0*size+idx] = (r - imagenetMean[0]) / imagenetStd[0]
			out[1*size+idx] = (g - imagenetMean[1]) / imagenetStd[1]
			out[2*size+idx] = (b - imagenetMean[2]) / imagenetStd[2]
		}
	}
	return out
}
