/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package matching

import "context"

// FakeRegistry is a deterministic Registry double for pipeline/stage tests.
type FakeRegistry struct {
	Teams []Team
	Err   error
}

func (f *FakeRegistry) StandbyTeams(ctx context.Context) ([]Team, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Teams, nil
}
