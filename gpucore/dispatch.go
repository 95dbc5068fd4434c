package gpucore

// WorkgroupSize is the local size every filter program is compiled with.
var WorkgroupSize = [3]uint32{8, 8, 1}

// DispatchGrid returns the number of workgroups needed to cover a
// width x height image: (ceil(w/8), ceil(h/8), 1).
func DispatchGrid(width, height int) [3]uint32 {
	if width <= 0 || height <= 0 {
		return [3]uint32{0, 0, 1}
	}
	w := uint32(width)  //nolint:gosec // checked positive
	h := uint32(height) //nolint:gosec // checked positive
	return [3]uint32{
		(w + WorkgroupSize[0] - 1) / WorkgroupSize[0],
		(h + WorkgroupSize[1] - 1) / WorkgroupSize[1],
		1,
	}
}
