// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package window provides the sliding proximity window used when sweeping a
// position-sorted variant stream for nearby pairs. The window holds the
// recently seen variants on the current chromosome; each newcomer is compared
// against every member still within reach before joining them.
package window
