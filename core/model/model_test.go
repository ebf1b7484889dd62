package model

import (
	"bytes"
	"errors"
	"fmt"
	"net/rpc"
	"testing"
)

func TestChunkCount(t *testing.T) {
	cases := []struct {
		size, chunkSize, want int
	}{
		{0, 8, 0},
		{1, 8, 1},
		{5, 8, 1},
		{8, 8, 1},
		{9, 8, 2},
		{16, 8, 2},
		{17, 8, 3},
		{64, 1, 64},
	}

	for _, c := range cases {
		if got := ChunkCount(c.size, c.chunkSize); got != c.want {
			t.Errorf("ChunkCount(%d, %d) = %d, want %d", c.size, c.chunkSize, got, c.want)
		}
	}
}

func TestChunkCountMatchesCeilDivision(t *testing.T) {
	for chunkSize := 1; chunkSize <= 10; chunkSize++ {
		for n := 0; n <= 100; n++ {
			want := n / chunkSize
			if n%chunkSize != 0 {
				want++
			}

			if got := ChunkCount(n, chunkSize); got != want {
				t.Fatalf("ChunkCount(%d, %d) = %d, want %d", n, chunkSize, got, want)
			}
		}
	}
}

func TestSplitChunksPreservesOrder(t *testing.T) {
	for _, n := range []int{0, 5, 8, 9, 17} {
		data := bytes.Repeat([]byte("abcdefghijklmnopq"), 2)[:n]
		chunks := SplitChunks(data, 8)

		if len(chunks) != ChunkCount(n, 8) {
			t.Fatalf("len %d: got %d chunks", n, len(chunks))
		}

		for _, c := range chunks {
			if len(c) == 0 || len(c) > 8 {
				t.Fatalf("len %d: bad chunk size %d", n, len(c))
			}
		}

		if joined := bytes.Join(chunks, nil); !bytes.Equal(joined, data) {
			t.Fatalf("len %d: joined %q, want %q", n, joined, data)
		}
	}
}

func TestNodeRegistryDecode(t *testing.T) {
	var r NodeRegistry
	if err := r.Decode("0=localhost:8010, 1=localhost:8020,2=10.0.0.3:8030"); err != nil {
		t.Fatal(err)
	}

	if len(r) != 3 || r["2"] != "10.0.0.3:8030" {
		t.Fatalf("unexpected registry %v", r)
	}

	if got := r.String(); got != "0=localhost:8010,1=localhost:8020,2=10.0.0.3:8030" {
		t.Fatalf("String() = %q", got)
	}

	for _, bad := range []string{"0", "0=localhost", "0=a:1,0=b:2", "=a:1"} {
		var r NodeRegistry
		if err := r.Decode(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Decode(%q) err = %v, want ErrInvalidArgument", bad, err)
		}
	}
}

func TestFromRemote(t *testing.T) {
	remote := rpc.ServerError(fmt.Errorf("%w: /a", ErrFileExists).Error())
	err := FromRemote(remote)

	if !errors.Is(err, ErrFileExists) {
		t.Fatalf("FromRemote lost sentinel: %v", err)
	}

	if err.Error() != "file already exists: /a" {
		t.Fatalf("FromRemote changed message: %q", err.Error())
	}

	other := rpc.ServerError("boom")
	if got := FromRemote(other); got != other {
		t.Fatalf("unknown errors should pass through, got %v", got)
	}

	if FromRemote(nil) != nil {
		t.Fatal("FromRemote(nil) != nil")
	}
}
