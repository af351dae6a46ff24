/*
 * Copyright 2025 Aztell Solucoes em Telefonia IP.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ami

import (
	"bufio"
	"strings"
)

// readBlock reads one AMI message: "Key: Value" lines terminated by an empty
// line. Lines without a colon are skipped; Asterisk emits them in some
// command responses.
func readBlock(r *bufio.Reader) (Event, error) {
	evt := make(Event)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(evt) == 0 {
				// Stray blank line between messages, keep reading.
				continue
			}

			return evt, nil
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		evt[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
}

// writeAction renders an AMI action frame. Fields iterate in insertion order
// via the keys slice so Action always leads the frame.
func writeAction(w *bufio.Writer, keys []string, fields map[string]string) error {
	for _, key := range keys {
		if _, err := w.WriteString(key + ": " + fields[key] + "\r\n"); err != nil {
			return err
		}
	}

	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}

	return w.Flush()
}
