// Copyright 2025 CDMS Data Services
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import "strings"

// AppendSlash normalizes an id prefix to carry exactly one trailing slash.
// The empty string stays empty so "no prefix" remains expressible.
func AppendSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// DocumentID derives the catalog document identifier for an object key.
// Each object under a bucket+prefix scope maps to exactly one id, so the
// derivation never collides for distinct keys.
func DocumentID(idPrefix, key string) string {
	return AppendSlash(idPrefix) + key
}
