// SPDX-License-Identifier: MPL-2.0

package include

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxRemoteSize caps how much of a remote manifest is read.
const maxRemoteSize = 4 << 20

var remoteClient = &http.Client{Timeout: 30 * time.Second}

// fetchHTTPS retrieves a remote include target. Only https URLs are
// accepted.
func fetchHTTPS(url string) (string, error) {
	if !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("remote include %q must use https", url)
	}
	resp, err := remoteClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch include: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch include %q: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return "", fmt.Errorf("fetch include %q: %w", url, err)
	}
	if len(data) > maxRemoteSize {
		return "", fmt.Errorf("fetch include %q: response exceeds %d bytes", url, maxRemoteSize)
	}
	return string(data), nil
}
