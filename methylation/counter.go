// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package methylation

// Counter numbers output rows across a whole run. The first row is 1. A
// Counter is not threadsafe; it is owned by the goroutine writing the output.
type Counter struct {
	n int64
}

// Next advances the counter and returns the new value.
func (c *Counter) Next() int64 {
	c.n++
	return c.n
}

// Count returns the number of values handed out so far.
func (c *Counter) Count() int64 { return c.n }
