package webadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/pkg/kvalue"
)

func TestAsResponseTupleRecognizesWellFormedTuple(t *testing.T) {
	v := kvalue.ListV([]kvalue.Value{
		kvalue.Num(kvalue.UInt(201)),
		kvalue.ListV([]kvalue.Value{kvalue.ListV([]kvalue.Value{kvalue.Str("X-Test"), kvalue.Str("1")})}),
		kvalue.ListV(nil),
		kvalue.Bin([]byte("hello")),
		kvalue.Empty(),
	})

	tuple, ok := asResponseTuple(v)
	require.True(t, ok)
	assert.Equal(t, uint64(201), tuple.status)
	require.Len(t, tuple.headers, 1)
	assert.Equal(t, [2]string{"X-Test", "1"}, tuple.headers[0])
	assert.Equal(t, "hello", string(tuple.body))
}

func TestAsResponseTupleRejectsPlainValue(t *testing.T) {
	_, ok := asResponseTuple(kvalue.Str("just text"))
	assert.False(t, ok)
}

func TestAsResponseTupleRejectsWrongArity(t *testing.T) {
	_, ok := asResponseTuple(kvalue.ListV([]kvalue.Value{kvalue.Num(kvalue.UInt(200))}))
	assert.False(t, ok)
}

func TestWriteTupleSetsHeadersCookiesAndStatus(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	s.writeTuple(rec, req, responseTuple{
		status:  201,
		headers: [][2]string{{"X-Test", "1"}},
		cookies: [][2]string{{"session", "abc"}},
		body:    []byte("created"),
	})

	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "session=abc")
	assert.Equal(t, "created", rec.Body.String())
}
