package detector

import (
	"context"
	"image"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/httpclient"
)

const detectorURL = "http://detector.test"

func newMockedRemote(t *testing.T) (*RemoteDetector, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	det, err := NewRemoteDetector(&conf.DetectorSettings{
		Model:  "yolov8n.pt",
		Remote: conf.RemoteDetectorSettings{URL: detectorURL + "/", Timeout: 5 * time.Second},
	}, httpclient.New(&httpclient.Config{Transport: transport}))
	require.NoError(t, err)
	return det, transport
}

func TestRemoteDetector_Detect(t *testing.T) {
	t.Parallel()

	det, transport := newMockedRemote(t)

	transport.RegisterResponder(http.MethodPost, detectorURL+"/detect",
		func(req *http.Request) (*http.Response, error) {
			if err := req.ParseMultipartForm(1 << 20); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			if req.FormValue("conf") != "0.25" || req.FormValue("imgsz") != "640" {
				return httpmock.NewStringResponse(http.StatusBadRequest, "bad fields"), nil
			}
			file, header, err := req.FormFile("image")
			if err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			_ = file.Close()
			if header.Filename != "frame.jpg" {
				return httpmock.NewStringResponse(http.StatusBadRequest, "bad filename"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"detections":[
				{"class_id":2,"confidence":0.91,"box":[10,10,40,30]},
				{"class_id":9,"confidence":0.55,"box":[50,0,200,90]},
				{"class_id":0,"confidence":0.7}
			]}`), nil
		})

	detections, err := det.Detect(context.Background(), testFrame(t, 64, 48), 0.25, 640)
	require.NoError(t, err)
	require.Len(t, detections, 3)

	assert.Equal(t, 2, detections[0].ClassID)
	assert.InDelta(t, 0.91, detections[0].Confidence, 1e-12)
	assert.Equal(t, image.Rect(10, 10, 40, 30), detections[0].Box)
	// boxes are clipped to the frame
	assert.Equal(t, image.Rect(50, 0, 64, 48), detections[1].Box)
	assert.True(t, detections[2].Box.Empty())

	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestRemoteDetector_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		category  errors.ErrorCategory
	}{
		{"server error", httpmock.NewStringResponder(http.StatusInternalServerError, "boom"), errors.CategoryDetector},
		{"invalid json", httpmock.NewStringResponder(http.StatusOK, "not json"), errors.CategoryDetector},
		{"transport failure", httpmock.NewErrorResponder(errors.NewStd("connection refused")), errors.CategoryNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			det, transport := newMockedRemote(t)
			transport.RegisterResponder(http.MethodPost, detectorURL+"/detect", tt.responder)

			_, err := det.Detect(context.Background(), testFrame(t, 8, 8), 0.25, 640)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", errors.CategoryOf(err))
		})
	}
}

func TestRemoteDetector_Health(t *testing.T) {
	t.Parallel()

	det, transport := newMockedRemote(t)
	transport.RegisterResponder(http.MethodGet, detectorURL+"/health",
		httpmock.NewStringResponder(http.StatusOK, `{"status":"ok"}`))
	require.NoError(t, det.Health(context.Background()))

	down, downTransport := newMockedRemote(t)
	downTransport.RegisterResponder(http.MethodGet, detectorURL+"/health",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))
	require.Error(t, down.Health(context.Background()))
}

func TestNewRemoteDetector_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewRemoteDetector(&conf.DetectorSettings{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
