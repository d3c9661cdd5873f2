// Copyright (C) 2008-2018 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

package instance

import "errors"

// The six error kinds of the command surface. Each command wraps one of
// these sentinels with a human-readable message; clients match on the
// message text.
var (
	ErrNotFound         = errors.New("not found")
	ErrPrecondition     = errors.New("precondition failed")
	ErrRouteIllegal     = errors.New("route illegal")
	ErrRouteUnavailable = errors.New("route unavailable")
	ErrRouteConflicting = errors.New("route conflicting")
	ErrCancelIncomplete = errors.New("cancel incomplete")
)
