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

// Package debug holds operator utilities that poke at the system's
// externals directly, outside the audit and indexing flows.
package debug

import (
	"github.com/spf13/cobra"
)

func GetDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Debugging utilities",
	}

	cmd.AddCommand(GetS3LSCmd())
	cmd.AddCommand(GetParquetCmd())

	return cmd
}
