// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"golang.org/x/sync/errgroup"
)

type streamKey struct {
	dma    *Manager
	stream Stream
}

// ExecuteAll runs transfers targeting distinct streams concurrently. All
// transfers are validated, and checked for stream conflicts, before any of
// them is started.
func ExecuteAll(transfers ...*Transfer) error {
	used := make(map[streamKey]bool)

	for _, t := range transfers {
		if err := t.Validate(); err != nil {
			return err
		}

		k := streamKey{t.dma, t.Stream}

		if used[k] {
			return &Error{Kind: StreamBusy, Stream: t.Stream}
		}

		used[k] = true
	}

	eg := &errgroup.Group{}

	for _, t := range transfers {
		t := t

		eg.Go(func() error {
			ok, err := t.Execute()

			if err != nil {
				return err
			}

			if !ok {
				return &Error{Kind: TransferFailed, Stream: t.Stream}
			}

			return nil
		})
	}

	return eg.Wait()
}
