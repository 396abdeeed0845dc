package outline

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/outline-tools/outline-admin/pkg/transport"
)

// fakeTransport records exchanges and replays canned results.
type fakeTransport struct {
	result  transport.Result
	err     error
	verbs   []string
	targets []string
	bodies  []string
}

func (f *fakeTransport) Exchange(_ context.Context, verb string, target *url.URL, body []byte) (transport.Result, error) {
	f.verbs = append(f.verbs, verb)
	f.targets = append(f.targets, target.String())
	f.bodies = append(f.bodies, string(body))
	if f.err != nil {
		return transport.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeTransport) Close() error { return nil }

func newTestClient(t *testing.T, tr transport.Transport) *Client {
	t.Helper()
	client, err := New("https://proxy.example.com:42314/SecretPrefix", Options{Transport: tr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "http scheme rejected", url: "http://host:1234/p"},
		{name: "no host", url: "https:///p"},
		{name: "garbage", url: "://nope"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.url, Options{Transport: &fakeTransport{}})
			if err == nil {
				t.Fatalf("expected error for %q", tc.url)
			}
			var urlErr *UrlError
			if !errors.As(err, &urlErr) {
				t.Fatalf("expected *UrlError, got %T: %v", err, err)
			}
		})
	}
}

func TestNewDefaultsPortTo443(t *testing.T) {
	client, err := New("https://proxy.example.com/p", Options{Transport: &fakeTransport{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := client.BaseURL(); got != "https://proxy.example.com:443/p" {
		t.Fatalf("base = %q, want default port applied", got)
	}
}

func TestCreateAccessKeySuccessCanonicalizes(t *testing.T) {
	tr := &fakeTransport{result: transport.Result{
		Status: 201,
		Body:   []byte("{\n  \"name\": \"alice\", \"id\": \"1\"\n}"),
	}}
	client := newTestClient(t, tr)

	got, err := client.CreateAccessKey(context.Background(), KeyParams{Name: String("alice")})
	if err != nil {
		t.Fatalf("CreateAccessKey: %v", err)
	}
	if string(got) != `{"id":"1","name":"alice"}` {
		t.Errorf("canonical body = %s", got)
	}

	if tr.verbs[0] != "POST" {
		t.Errorf("verb = %q, want POST", tr.verbs[0])
	}
	if tr.targets[0] != "https://proxy.example.com:42314/SecretPrefix/access-keys" {
		t.Errorf("target = %q", tr.targets[0])
	}
	if tr.bodies[0] != `{"name":"alice"}` {
		t.Errorf("request body = %q", tr.bodies[0])
	}
}

func TestCreateAccessKeyServerErrorSkipsParsing(t *testing.T) {
	tr := &fakeTransport{result: transport.Result{Status: 500, Body: []byte("not-json")}}
	client := newTestClient(t, tr)

	_, err := client.CreateAccessKey(context.Background(), KeyParams{})
	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
	if srvErr.Op != "createAccessKey" || srvErr.Status != 500 {
		t.Errorf("got op=%q status=%d", srvErr.Op, srvErr.Status)
	}
}

func TestAccessKeyUnparsableBodyIsParseError(t *testing.T) {
	tr := &fakeTransport{result: transport.Result{Status: 200, Body: []byte("not-json")}}
	client := newTestClient(t, tr)

	_, err := client.AccessKey(context.Background(), "3")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.Op != "getAccessKey" {
		t.Errorf("op = %q", parseErr.Op)
	}
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		t.Error("ParseError must not double as ServerError")
	}

	if tr.targets[0] != "https://proxy.example.com:42314/SecretPrefix/access-keys/3" {
		t.Errorf("target = %q", tr.targets[0])
	}
}

func TestDeleteAccessKeyJudgedByStatusAlone(t *testing.T) {
	tr := &fakeTransport{result: transport.Result{Status: 204}}
	client := newTestClient(t, tr)

	if err := client.DeleteAccessKey(context.Background(), "9"); err != nil {
		t.Fatalf("DeleteAccessKey: %v", err)
	}
	if tr.verbs[0] != "DELETE" {
		t.Errorf("verb = %q, want DELETE", tr.verbs[0])
	}

	tr.result = transport.Result{Status: 404}
	err := client.DeleteAccessKey(context.Background(), "9")
	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
	if srvErr.Status != 404 {
		t.Errorf("status = %d", srvErr.Status)
	}
}

func TestUpdateAccessKeyExpects201(t *testing.T) {
	tr := &fakeTransport{result: transport.Result{Status: 200, Body: []byte(`{}`)}}
	client := newTestClient(t, tr)

	_, err := client.UpdateAccessKey(context.Background(), "2", KeyParams{Name: String("bob")})
	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected *ServerError for 200 on update, got %v", err)
	}

	tr.result = transport.Result{Status: 201, Body: []byte(`{"id":"2","name":"bob"}`)}
	if _, err := client.UpdateAccessKey(context.Background(), "2", KeyParams{Name: String("bob")}); err != nil {
		t.Fatalf("UpdateAccessKey: %v", err)
	}
	if tr.verbs[len(tr.verbs)-1] != "PUT" {
		t.Errorf("verb = %q, want PUT", tr.verbs[len(tr.verbs)-1])
	}
}

func TestRepeatedCallsComposeFromOriginalBase(t *testing.T) {
	tr := &fakeTransport{result: transport.Result{Status: 200, Body: []byte(`{"accessKeys":[]}`)}}
	client := newTestClient(t, tr)

	for i := 0; i < 3; i++ {
		if _, err := client.AccessKeys(context.Background()); err != nil {
			t.Fatalf("AccessKeys call %d: %v", i, err)
		}
	}

	want := "https://proxy.example.com:42314/SecretPrefix/access-keys"
	for i, target := range tr.targets {
		if target != want {
			t.Fatalf("call %d target = %q, base URL accumulated", i, target)
		}
	}
}

func TestTransportErrorsPassThrough(t *testing.T) {
	wantErr := &transport.Error{Stage: transport.StageConnect, Err: errors.New("refused")}
	tr := &fakeTransport{err: wantErr}
	client := newTestClient(t, tr)

	_, err := client.AccessKeys(context.Background())
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if trErr.Stage != transport.StageConnect {
		t.Errorf("stage = %q", trErr.Stage)
	}
}

func TestServerOperations(t *testing.T) {
	tr := &fakeTransport{result: transport.Result{Status: 200, Body: []byte(`{"serverId":"abc","name":"vpn"}`)}}
	client := newTestClient(t, tr)

	raw, err := client.Server(context.Background())
	if err != nil {
		t.Fatalf("Server: %v", err)
	}
	if string(raw) != `{"name":"vpn","serverId":"abc"}` {
		t.Errorf("canonical body = %s", raw)
	}

	tr.result = transport.Result{Status: 204}
	if err := client.RenameServer(context.Background(), "vpn-2"); err != nil {
		t.Fatalf("RenameServer: %v", err)
	}
	if tr.bodies[len(tr.bodies)-1] != `{"name":"vpn-2"}` {
		t.Errorf("rename body = %q", tr.bodies[len(tr.bodies)-1])
	}

	if err := client.SetDataLimit(context.Background(), "5", 1024); err != nil {
		t.Fatalf("SetDataLimit: %v", err)
	}
	if tr.bodies[len(tr.bodies)-1] != `{"limit":{"bytes":1024}}` {
		t.Errorf("limit body = %q", tr.bodies[len(tr.bodies)-1])
	}
	if tr.targets[len(tr.targets)-1] != "https://proxy.example.com:42314/SecretPrefix/access-keys/5/data-limit" {
		t.Errorf("limit target = %q", tr.targets[len(tr.targets)-1])
	}

	if err := client.RemoveDataLimit(context.Background(), "5"); err != nil {
		t.Fatalf("RemoveDataLimit: %v", err)
	}
}

func TestParseAccessKeys(t *testing.T) {
	raw := []byte(`{"accessKeys":[{"id":"0","name":"a"},{"id":"1","name":"b","limit":{"bytes":10}}]}`)
	keys, err := ParseAccessKeys(raw)
	if err != nil {
		t.Fatalf("ParseAccessKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys", len(keys))
	}
	if keys[1].Limit == nil || keys[1].Limit.Bytes != 10 {
		t.Errorf("limit not decoded: %+v", keys[1])
	}
}
