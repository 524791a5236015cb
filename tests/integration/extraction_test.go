package integration

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/domain/port"
	"github.com/visionsense/video-features-service/internal/extractor"
	"github.com/visionsense/video-features-service/internal/infra/email"
	miniostorage "github.com/visionsense/video-features-service/internal/infra/minio"
	"github.com/visionsense/video-features-service/internal/infra/rabbitmq"
	"github.com/visionsense/video-features-service/internal/infra/vision"
	"github.com/visionsense/video-features-service/internal/usecase"
	"github.com/visionsense/video-features-service/pkg/logger"
)

// noopDetector lets the end-to-end test run without YOLO model files on the
// machine; detection counts are simply zero then.
type noopDetector struct{}

func (noopDetector) DetectObjects(context.Context, port.Frame) ([]port.Detection, error) {
	return nil, nil
}

func newDetector(t *testing.T) port.ObjectDetector {
	t.Helper()
	modelPath := filepath.Join("..", "..", "models", "yolov4-tiny.weights")
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Log("YOLO model files not found, running with detection disabled")
		return noopDetector{}
	}
	det, err := vision.NewObjectDetector(vision.DetectorConfig{
		ModelPath:      modelPath,
		ConfigPath:     filepath.Join("..", "..", "models", "yolov4-tiny.cfg"),
		ClassNamesPath: filepath.Join("..", "..", "models", "coco.names"),
		Confidence:     0.5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { det.Close() })
	return det
}

func testPipeline(t *testing.T) *extractor.Pipeline {
	t.Helper()
	log, _ := logger.New("debug")
	return extractor.NewPipeline(
		vision.NewDecoder(),
		vision.NewFrameOps(),
		vision.NewTextRecognizer("eng"),
		newDetector(t),
		extractor.Config{
			FrameStride:      1,
			ResizeWidth:      320,
			ShotThreshold:    0.45,
			TextSampleStride: 2,
			TextMinChars:     8,
			DetectionStride:  2,
			Farneback: port.FarnebackParams{
				PyrScale: 0.5, Levels: 3, WinSize: 15,
				Iterations: 3, PolyN: 5, PolySigma: 1.2,
			},
			Histogram: port.HistogramParams{
				Bins:   [3]int{8, 8, 8},
				Ranges: [6]float64{0, 180, 0, 256, 0, 256},
			},
		},
		log,
	)
}

func TestExtractJobEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testVideoPath := filepath.Join("..", "testdata", "test.mp4")
	if _, err := os.Stat(testVideoPath); os.IsNotExist(err) {
		t.Skip("test video not found at tests/testdata/test.mp4 - generate it with: ffmpeg -f lavfi -i testsrc=duration=2:size=320x240:rate=5 -c:v libx264 -pix_fmt yuv420p tests/testdata/test.mp4")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		UploadBucket: "uploads",
		ResultBucket: "features",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	videoKey := "testuser/test.mp4"
	_, err = minioClient.FPutObject(ctx, "uploads", videoKey, testVideoPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	require.NoError(t, err)

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "visionsense.video")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "video.extract.dlq")

	log, _ := logger.New("debug")
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewExtractJobUseCase(
		storage, testPipeline(t), statusPub, dlqPub, notifier, log,
		usecase.ExtractJobConfig{
			TempDir:    t.TempDir(),
			MaxRetries: 3,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "video.extract",
		Exchange:    "visionsense.video",
		DLQ:         "video.extract.dlq",
		StatusQueue: "video.features",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	// Publish extraction request
	jobID := uuid.New()
	videoInfo, _ := os.Stat(testVideoPath)
	requestMsg := entity.ExtractionRequestMessage{
		JobID:     jobID,
		UserID:    "testuser",
		VideoKey:  videoKey,
		FileSize:  videoInfo.Size(),
		UserEmail: "test@test.local",
	}
	msgBody, err := json.Marshal(requestMsg)
	require.NoError(t, err)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"visionsense.video",
		"video.extract",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msgBody,
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	// Wait for status message on video.features queue
	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()

	statusMsgs, err := statusCh.Consume("video.features", "", true, false, false, false, nil)
	require.NoError(t, err)

	var statusMsg entity.ExtractionStatusMessage
	select {
	case delivery := <-statusMsgs:
		err = json.Unmarshal(delivery.Body, &statusMsg)
		require.NoError(t, err)
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status message")
	}

	assert.Equal(t, jobID, statusMsg.JobID)
	assert.Equal(t, entity.ExtractionStatusCompleted, statusMsg.Status)
	require.NotNil(t, statusMsg.Result)
	assert.Greater(t, statusMsg.Result.FramesProcessed, 0)
	assert.Greater(t, statusMsg.Result.FramesTotal, 0)

	// Verify result JSON exists in MinIO and matches the published result
	resultKey := "testuser/features_" + jobID.String() + ".json"
	resultObj, err := minioClient.GetObject(ctx, "features", resultKey, miniogo.GetObjectOptions{})
	require.NoError(t, err)

	resultBytes, err := io.ReadAll(resultObj)
	require.NoError(t, err)

	var stored entity.FeatureResult
	require.NoError(t, json.Unmarshal(resultBytes, &stored))
	assert.Equal(t, statusMsg.Result.FramesProcessed, stored.FramesProcessed)
	assert.Equal(t, statusMsg.Result.HardCuts, stored.HardCuts)

	consumerCancel()
	t.Logf("Test passed: %d frames processed, result at %s", stored.FramesProcessed, resultKey)
}

func TestExtractJobMalformedMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		UploadBucket: "uploads",
		ResultBucket: "features",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	log, _ := logger.New("debug")
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "visionsense.video")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "video.extract.dlq")
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewExtractJobUseCase(
		storage, testPipeline(t), statusPub, dlqPub, notifier, log,
		usecase.ExtractJobConfig{
			TempDir:    t.TempDir(),
			MaxRetries: 3,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "video.extract",
		Exchange:    "visionsense.video",
		DLQ:         "video.extract.dlq",
		StatusQueue: "video.features",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"visionsense.video",
		"video.extract",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        []byte(`{invalid json`),
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	time.Sleep(2 * time.Second)

	dlqCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	dlqMsg, ok, err := dlqCh.Get("video.extract.dlq", true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(dlqMsg.Body))

	consumerCancel()
	t.Log("Test passed: malformed message sent to DLQ")
}
