package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockPageSize keeps listings small so pagination is exercised.
const mockPageSize = 2

// MockBackend is an in-memory fake of the S3 HTTP API. It serves GetObject
// and ListObjectsV2 (with delimiter and continuation tokens) for any bucket.
type MockBackend struct {
	mu      sync.Mutex
	buckets map[string]map[string]mockObj
	// Requests counts handled HTTP requests.
	Requests int
}

type mockObj struct {
	body        []byte
	contentType string
}

// NewMockForTests returns a Store wired to an in-memory MockBackend.
func NewMockForTests() (*Store, *MockBackend) {
	rt := &MockBackend{buckets: make(map[string]map[string]mockObj)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client}, rt
}

// Seed stores an object in the fake backend.
func (m *MockBackend) Seed(bucket, key string, body []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[bucket]
	if !ok {
		objs = make(map[string]mockObj)
		m.buckets[bucket] = objs
	}
	m.buckets[bucket][key] = mockObj{body: append([]byte(nil), body...), contentType: contentType}
}

// RoundTrip implements http.RoundTripper.
func (m *MockBackend) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	objs, ok := m.buckets[bucket]
	if !ok {
		return xmlError(http.StatusNotFound, "NoSuchBucket"), nil
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(objs, req), nil
	}
	if req.Method != http.MethodGet {
		return xmlError(http.StatusNotImplemented, "NotImplemented"), nil
	}
	st, ok := objs[key]
	if !ok {
		return xmlError(http.StatusNotFound, "NoSuchKey"), nil
	}
	header := http.Header{}
	header.Set("Content-Length", strconv.Itoa(len(st.body)))
	header.Set("Content-Type", st.contentType)
	header.Set("Last-Modified", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
	header.Set("ETag", `"etag"`)
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(st.body)), Header: header}, nil
}

func (m *MockBackend) list(objs map[string]mockObj, req *http.Request) *http.Response {
	q := req.URL.Query()
	prefix := q.Get("prefix")
	delim := q.Get("delimiter")
	after := q.Get("continuation-token")

	var keys []string
	prefixes := map[string]struct{}{}
	for k := range objs {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				prefixes[prefix+rest[:i+len(delim)]] = struct{}{}
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start := 0
	if after != "" {
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}
	end := start + mockPageSize
	truncated := end < len(keys)
	if !truncated {
		end = len(keys)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	fmt.Fprintf(&b, "<IsTruncated>%t</IsTruncated>", truncated)
	if truncated {
		b.WriteString("<NextContinuationToken>")
		_ = xml.EscapeText(&b, []byte(keys[end-1]))
		b.WriteString("</NextContinuationToken>")
	}
	for _, k := range keys[start:end] {
		b.WriteString("<Contents><Key>")
		_ = xml.EscapeText(&b, []byte(k))
		fmt.Fprintf(&b, "</Key><Size>%d</Size><ETag>&quot;etag&quot;</ETag><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", len(objs[k].body))
	}
	if !truncated {
		cps := make([]string, 0, len(prefixes))
		for p := range prefixes {
			cps = append(cps, p)
		}
		sort.Strings(cps)
		for _, p := range cps {
			b.WriteString("<CommonPrefixes><Prefix>")
			_ = xml.EscapeText(&b, []byte(p))
			b.WriteString("</Prefix></CommonPrefixes>")
		}
	}
	b.WriteString("</ListBucketResult>")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())), Header: http.Header{"Content-Type": {"application/xml"}}}
}

func xmlError(status int, code string) *http.Response {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{"Content-Type": {"application/xml"}}}
}
