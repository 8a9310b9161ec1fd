package flodesk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(srv *httptest.Server) *Client {
	factory := NewFactory(srv.URL, AuthSchemeBearer, 5*time.Second, nil)
	return factory.Client("testkey12345")
}

func TestSubscribers_ListAll_UnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscribers" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer testkey12345" {
			t.Errorf("unexpected Authorization header: %s", auth)
		}
		w.Write([]byte(`{"data":{"data":[
			{"id":"507f1f77bcf86cd799439011","email":"a@example.com","status":"active"},
			{"id":"507f1f77bcf86cd799439012","email":"b@example.com","status":"unsubscribed"}
		]}}`))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	subs, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(subs))
	}
	if subs[0].Email != "a@example.com" {
		t.Errorf("expected a@example.com, got %s", subs[0].Email)
	}
}

func TestSubscribers_ListAll_OnlyActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"507f1f77bcf86cd799439011","email":"a@example.com","status":"active"},
			{"id":"507f1f77bcf86cd799439012","email":"b@example.com","status":"unsubscribed"}
		]}`))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), true)
	subs, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 active subscriber, got %d", len(subs))
	}
	if subs[0].Status != StatusActive {
		t.Errorf("expected active status, got %s", subs[0].Status)
	}
}

func TestSubscribers_Get_ByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscribers/user@example.com" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"507f1f77bcf86cd799439011","email":"user@example.com","status":"active"}`))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	sub, err := svc.Get(context.Background(), ParseIdentifier("user@example.com"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sub.ID != "507f1f77bcf86cd799439011" {
		t.Errorf("unexpected id: %s", sub.ID)
	}
}

func TestSubscribers_Get_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"subscriber not found"}`))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	_, err := svc.Get(context.Background(), ParseIdentifier("ghost@example.com"))

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Kind != KindNotFound {
		t.Errorf("expected KindNotFound, got %v", fe.Kind)
	}
	if fe.Error() != `subscriber "ghost@example.com" not found` {
		t.Errorf("unexpected message: %s", fe.Error())
	}
}

func TestSubscribers_Get_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	_, err := svc.Get(context.Background(), ParseIdentifier("user@example.com"))

	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindInvalidCredential {
		t.Errorf("expected KindInvalidCredential, got %v", err)
	}
}

func TestSubscribers_Get_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	_, err := svc.Get(context.Background(), ParseIdentifier("user@example.com"))

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Kind != KindUpstream {
		t.Errorf("expected KindUpstream, got %v", fe.Kind)
	}
	if fe.Status != http.StatusBadGateway || fe.Body != "bad gateway" {
		t.Errorf("diagnostics not preserved: status=%d body=%q", fe.Status, fe.Body)
	}
}

func TestSubscribers_Get_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	svc := NewSubscribers(testClient(srv), false)
	_, err := svc.Get(context.Background(), ParseIdentifier("user@example.com"))

	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindUnavailable {
		t.Errorf("expected KindUnavailable, got %v", err)
	}
}

func TestSubscribers_CreateOrUpdate(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || r.URL.Path != "/subscribers" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "new@example.com" {
			t.Errorf("unexpected email in body: %v", body["email"])
		}
		w.Write([]byte(`{"data":{"id":"507f1f77bcf86cd799439099","email":"new@example.com","status":"active"}}`))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	sub, err := svc.CreateOrUpdate(context.Background(), SubscriberInput{Email: "new@example.com", FirstName: "New"})
	if err != nil {
		t.Fatalf("CreateOrUpdate failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 upsert call, got %d", calls)
	}
	if sub.ID != "507f1f77bcf86cd799439099" {
		t.Errorf("unexpected id: %s", sub.ID)
	}
}

func TestSubscribers_AddToSegments_ResolvesEmail(t *testing.T) {
	const subID = "507f1f77bcf86cd799439011"
	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subscribers/user@example.com":
			w.Write([]byte(`{"id":"` + subID + `","email":"user@example.com"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/subscribers/"+subID+"/segments":
			var body segmentIDsBody
			json.NewDecoder(r.Body).Decode(&body)
			if len(body.SegmentIDs) != 2 {
				t.Errorf("expected 2 segment ids, got %v", body.SegmentIDs)
			}
			w.Write([]byte(`{"id":"` + subID + `","email":"user@example.com","segments":[{"id":"seg-1"},{"id":"seg-2"}]}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	sub, err := svc.AddToSegments(context.Background(), ParseIdentifier("user@example.com"), []string{"seg-1", "seg-2"})
	if err != nil {
		t.Fatalf("AddToSegments failed: %v", err)
	}
	if len(gotPaths) != 2 {
		t.Fatalf("expected resolve + post, got %v", gotPaths)
	}
	if len(sub.Segments) != 2 {
		t.Errorf("expected 2 segments on subscriber, got %d", len(sub.Segments))
	}
}

func TestSubscribers_AddToSegments_SkipsResolveForID(t *testing.T) {
	const subID = "507f1f77bcf86cd799439011"
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/subscribers/"+subID+"/segments" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"` + subID + `","email":"user@example.com"}`))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	if _, err := svc.AddToSegments(context.Background(), ParseIdentifier(subID), []string{"seg-1"}); err != nil {
		t.Fatalf("AddToSegments failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("id identifier should not trigger a resolve call, got %d calls", calls)
	}
}

func TestSubscribers_RemoveFromSegments_DeleteWithBody(t *testing.T) {
	const subID = "507f1f77bcf86cd799439011"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		var body segmentIDsBody
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.SegmentIDs) != 2 {
			t.Errorf("expected 2 segment ids in DELETE body, got %v", body.SegmentIDs)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	ack, err := svc.RemoveFromSegments(context.Background(), ParseIdentifier(subID), []string{"seg-1", "seg-2"})
	if err != nil {
		t.Fatalf("RemoveFromSegments failed: %v", err)
	}
	if ack.ID != subID || len(ack.SegmentIDs) != 2 {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestSubscribers_UnsubscribeFromAll(t *testing.T) {
	const subID = "507f1f77bcf86cd799439011"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/subscribers/"+subID+"/unsubscribe" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id":"` + subID + `","status":"unsubscribed"}`))
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	ack, err := svc.UnsubscribeFromAll(context.Background(), ParseIdentifier(subID))
	if err != nil {
		t.Fatalf("UnsubscribeFromAll failed: %v", err)
	}
	if ack.ID != subID {
		t.Errorf("unexpected ack id: %s", ack.ID)
	}
}

func TestSubscribers_GetSegments_ResolvesRefs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/subscribers/user@example.com":
			w.Write([]byte(`{"id":"507f1f77bcf86cd799439011","email":"user@example.com","segments":[{"id":"seg-1"},{"id":"seg-3"}]}`))
		case "/segments":
			w.Write([]byte(`{"data":[{"id":"seg-1","name":"Newsletter"},{"id":"seg-2","name":"Promos"},{"id":"seg-3","name":"VIP"}]}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	svc := NewSubscribers(testClient(srv), false)
	view, err := svc.GetSegments(context.Background(), ParseIdentifier("user@example.com"))
	if err != nil {
		t.Fatalf("GetSegments failed: %v", err)
	}
	if view.Email != "user@example.com" {
		t.Errorf("unexpected email: %s", view.Email)
	}
	if len(view.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(view.Options))
	}
	if view.Options[0].Value != "seg-1" || view.Options[0].Label != "Newsletter" {
		t.Errorf("unexpected option: %+v", view.Options[0])
	}
	if view.Options[1].Label != "VIP" {
		t.Errorf("unexpected option: %+v", view.Options[1])
	}
}

func TestFactory_BasicAuthScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// base64("testkey12345:")
		if auth := r.Header.Get("Authorization"); auth != "Basic dGVzdGtleTEyMzQ1Og==" {
			t.Errorf("unexpected Authorization header: %s", auth)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	factory := NewFactory(srv.URL, AuthSchemeBasic, 5*time.Second, nil)
	svc := NewSubscribers(factory.Client("testkey12345"), false)
	if _, err := svc.ListAll(context.Background()); err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
}
