// Copyright © 2018 One Concern

package storage

import "sync"

const pipeBufferSize = 32 * 1024

var pipeBuffers = sync.Pool{
	New: func() interface{} {
		b := make([]byte, pipeBufferSize)
		return &b
	},
}
