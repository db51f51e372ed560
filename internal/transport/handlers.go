package transport

import (
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/service"
)

type KTX2Handler struct {
	service      service.ConversionService
	maxBodyBytes int64
	maxWait      time.Duration
}

// NewKTX2Handler builds the conversion handler. maxWait bounds how long a request waits
// for admission; zero waits until the client goes away.
func NewKTX2Handler(service service.ConversionService, maxBodyBytes int64, maxWait time.Duration) *KTX2Handler {
	return &KTX2Handler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
		maxWait:      maxWait,
	}
}
