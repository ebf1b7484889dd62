package model

import (
	"errors"
	"fmt"
	"net/rpc"
	"strings"
)

var (
	ErrFileExists           = errors.New("file already exists")
	ErrFileNotFound         = errors.New("file not found")
	ErrUnknownChunk         = errors.New("unknown chunk")
	ErrInsufficientReplicas = errors.New("insufficient replicas")
	ErrNodeUnreachable      = errors.New("node unreachable")
	ErrChunkNotFound        = errors.New("chunk not found")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrInvalidArgument      = errors.New("invalid argument")
)

var remoteErrors = []error{
	ErrFileExists,
	ErrFileNotFound,
	ErrUnknownChunk,
	ErrInsufficientReplicas,
	ErrNodeUnreachable,
	ErrChunkNotFound,
	ErrChecksumMismatch,
	ErrInvalidArgument,
}

// FromRemote restores the sentinel behind an error that crossed net/rpc.
// The server side only ships err.Error(), so sentinels are matched on prefix.
func FromRemote(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}

	msg := string(serverErr)
	for _, sentinel := range remoteErrors {
		if strings.HasPrefix(msg, sentinel.Error()) {
			return fmt.Errorf("%w%s", sentinel, strings.TrimPrefix(msg, sentinel.Error()))
		}
	}

	return err
}
