package classifier

import (
	"context"
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/example/imagegate/internal/logging"
)

// ONNXClassifier runs inference through an onnxruntime session loaded once at
// startup. It uses a dynamic session with per-call tensors, which onnxruntime
// allows to Run concurrently, so one instance serves all in-flight uploads.
type ONNXClassifier struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	logger     *zap.Logger
}

// NewONNXClassifier loads the model artifact and prepares a shared inference
// session. sharedLib optionally points at the onnxruntime shared library when
// it is not on the default loader path.
func NewONNXClassifier(modelPath, sharedLib string, logger *zap.Logger) (*ONNXClassifier, error) {
	if sharedLib != "" {
		ort.SetSharedLibraryPath(sharedLib)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, logging.NewOperationError("classifier.init_environment", "", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, logging.NewOperationError("classifier.inspect_model", "", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, logging.NewOperationError("classifier.inspect_model", "",
			fmt.Errorf("model %s declares no inputs or outputs", modelPath))
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		nil,
	)
	if err != nil {
		return nil, logging.NewOperationError("classifier.load_session", "", err)
	}

	logger.Info("classifier model loaded",
		zap.String("model", modelPath),
		zap.String("input", inputs[0].Name),
		zap.String("output", outputs[0].Name))

	return &ONNXClassifier{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		logger:     logger.Named("onnx_classifier"),
	}, nil
}

// Classify preprocesses the image, runs one inference pass and returns the
// softmax probability vector.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := Preprocess(img)
	input, err := ort.NewTensor(ort.NewShape(1, inputChannels, inputSize, inputSize), data)
	if err != nil {
		return nil, logging.NewOperationError("classifier.create_input", "", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, NumClasses))
	if err != nil {
		return nil, logging.NewOperationError("classifier.create_output", "", err)
	}
	defer output.Destroy()

	if err := c.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, logging.NewOperationError("classifier.run", "", err)
	}

	logits := make([]float32, NumClasses)
	copy(logits, output.GetData())
	return &Result{Probabilities: Softmax(logits)}, nil
}

// Close releases the inference session.
func (c *ONNXClassifier) Close() error {
	if c.session != nil {
		return c.session.Destroy()
	}
	return nil
}
