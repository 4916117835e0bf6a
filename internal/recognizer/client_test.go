package recognizer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := Config{
		PassportURL:     srv.URL + "/passport",
		LicenseURL:      srv.URL + "/license",
		PatentURL:       srv.URL + "/patent",
		AudioURL:        srv.URL + "/audio",
		DocumentTimeout: 2 * time.Second,
		AudioTimeout:    2 * time.Second,
	}
	return NewClient(cfg, srv.Client()), srv
}

func TestRecognizePassportMapsFields(t *testing.T) {
	var gotBody map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":         true,
			"last_name":       "КОЗЛОВ",
			"first_name":      "ВЯЧЕСЛАВ",
			"middle_name":     "ВАЛЕРЬЕВИЧ",
			"birth_date":      "01.02.1980",
			"birth_place":     "МОСКВА",
			"passport_number": "4515161589",
			"citizenship":     "РФ",
		})
	})

	image := []byte{0xff, 0xd8, 0xff, 0x01}
	fields, err := client.RecognizePassport(context.Background(), image)
	if err != nil {
		t.Fatalf("RecognizePassport: %v", err)
	}
	if fields.LastName != "КОЗЛОВ" || fields.FirstName != "ВЯЧЕСЛАВ" || fields.MiddleName != "ВАЛЕРЬЕВИЧ" {
		t.Errorf("name fields mismatch: %+v", fields)
	}
	if fields.PassportNumber != "4515161589" {
		t.Errorf("passport number = %q", fields.PassportNumber)
	}
	if gotBody["image"] != base64.StdEncoding.EncodeToString(image) {
		t.Errorf("request image not base64 of payload")
	}
}

func TestRecognizeLicenseSendsBothSides(t *testing.T) {
	var gotBody map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"success":        true,
			"full_name":      "ИВАНОВ ПЁТР СЕРГЕЕВИЧ",
			"license_number": "9924621263",
		})
	})

	front := []byte("front-bytes")
	back := []byte("back-bytes")
	fields, err := client.RecognizeLicense(context.Background(), front, back)
	if err != nil {
		t.Fatalf("RecognizeLicense: %v", err)
	}
	if fields.FullName != "ИВАНОВ ПЁТР СЕРГЕЕВИЧ" || fields.LicenseNumber != "9924621263" {
		t.Errorf("fields mismatch: %+v", fields)
	}
	if gotBody["front_image"] != base64.StdEncoding.EncodeToString(front) {
		t.Errorf("front_image missing or wrong")
	}
	if gotBody["back_image"] != base64.StdEncoding.EncodeToString(back) {
		t.Errorf("back_image missing or wrong")
	}
}

func TestRecognizeAudioMapsFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"bank_name":    "Сбербанк",
			"phone_number": "+7 (912) 345-67-89",
			"raw_text":     "мой банк сбербанк номер ...",
		})
	})

	fields, err := client.RecognizeAudio(context.Background(), []byte("ogg"))
	if err != nil {
		t.Fatalf("RecognizeAudio: %v", err)
	}
	if fields.BankName != "Сбербанк" || fields.PhoneNumber != "+7 (912) 345-67-89" {
		t.Errorf("fields mismatch: %+v", fields)
	}
}

func TestRemoteRejectedCarriesReason(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   "Bad Request",
			"message": "blurry image",
		})
	})

	_, err := client.RecognizePassport(context.Background(), []byte("img"))
	if err == nil {
		t.Fatal("expected error")
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gwErr.Kind != RemoteRejected {
		t.Errorf("kind = %s, want remote_rejected", gwErr.Kind)
	}
	if gwErr.Reason != "blurry image" {
		t.Errorf("reason = %q, want message field", gwErr.Reason)
	}
}

func TestRejectionWithoutMessageGetsFallbackReason(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	})

	_, err := client.RecognizePatent(context.Background(), []byte("img"))
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != RemoteRejected {
		t.Fatalf("expected remote_rejected, got %v", err)
	}
	if gwErr.Reason == "" {
		t.Error("reason must never be empty")
	}
}

func TestBadJSONIsBadResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	})

	_, err := client.RecognizePassport(context.Background(), []byte("img"))
	if KindOf(err) != BadResponse {
		t.Errorf("kind = %s, want bad_response", KindOf(err))
	}
}

func TestNonJSONErrorStatusIsTransportError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream exploded")
	})

	_, err := client.RecognizeAudio(context.Background(), []byte("ogg"))
	if KindOf(err) != TransportError {
		t.Errorf("kind = %s, want transport_error", KindOf(err))
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	client.cfg.DocumentTimeout = 50 * time.Millisecond
	_ = srv

	_, err := client.RecognizePassport(context.Background(), []byte("img"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gwErr.Kind != TransportError {
		t.Errorf("kind = %s, want transport_error", gwErr.Kind)
	}
	if gwErr.Reason != "timeout" {
		t.Errorf("reason = %q, want timeout", gwErr.Reason)
	}
}
