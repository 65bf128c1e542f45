package estimator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"vehicle-checkpoint-backend/internal/logger"
)

const visionService = "cloud-vision"

var ErrNoText = errors.New("no text found in image")

// textDetector returns the full OCR text of an image.
type textDetector func(ctx context.Context, data []byte) (string, error)

// VisionEstimator reads the dashboard with Cloud Vision text detection.
type VisionEstimator struct {
	detect textDetector
}

// NewVisionEstimator builds an estimator backed by Cloud Vision. An empty
// credentialsFile uses application default credentials.
func NewVisionEstimator(ctx context.Context, credentialsFile string) (*VisionEstimator, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionEstimator{detect: annotateWith(svc)}, nil
}

func annotateWith(svc *vision.Service) textDetector {
	return func(ctx context.Context, data []byte) (string, error) {
		req := &vision.BatchAnnotateImagesRequest{
			Requests: []*vision.AnnotateImageRequest{{
				Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
				Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
			}},
		}
		resp, err := svc.Images.Annotate(req).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		if len(resp.Responses) == 0 {
			return "", ErrNoText
		}
		r := resp.Responses[0]
		if r.Error != nil && r.Error.Code != 0 {
			return "", &googleapi.Error{Code: http.StatusBadRequest, Message: r.Error.Message}
		}
		if r.FullTextAnnotation != nil && r.FullTextAnnotation.Text != "" {
			return r.FullTextAnnotation.Text, nil
		}
		if len(r.TextAnnotations) > 0 {
			return r.TextAnnotations[0].Description, nil
		}
		return "", ErrNoText
	}
}

func (v *VisionEstimator) Estimate(ctx context.Context, img Image) Result {
	ctx, span := otel.Tracer("checkpoint/estimator").Start(ctx, "vision.TextDetection")
	defer span.End()
	span.SetAttributes(attribute.Int("image.bytes", len(img.Data)))

	if len(img.Data) == 0 {
		return Failure(KindRejected, errors.New("empty image"))
	}

	logger.ExternalServiceCall(visionService, "annotate", "bytes", len(img.Data))
	text, err := v.detect(ctx, img.Data)
	logger.ExternalServiceResult(visionService, "annotate", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Failure(classify(ctx, err), err)
	}

	est := ParseDashboardText(text)
	span.SetAttributes(
		attribute.Bool("estimate.odometer", est.Odometer != nil),
		attribute.Bool("estimate.fuel", est.FuelPercent != nil),
	)
	return Success(est)
}

func classify(ctx context.Context, err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, ErrNoText) {
		return KindUnreadable
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 {
		return KindRejected
	}
	return KindUnavailable
}
