package mathx

// FloorDiv divides rounding toward negative infinity. b > 0.
func FloorDiv(a, b int) int {
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

// Mod is the non-negative remainder matching FloorDiv. b > 0.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Split maps a world coordinate to (chunk, offset within chunk).
// Chunk c spans [c*size, c*size+size-1] for negative c as well.
func Split(p, size int) (chunk, offset int) {
	chunk = FloorDiv(p, size)
	return chunk, p - chunk*size
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3i) Scale(k int) Vec3i { return Vec3i{v.X * k, v.Y * k, v.Z * k} }
func (v Vec3i) ToArray() [3]int   { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Min is the component-wise minimum.
func Min(a, b Vec3i) Vec3i {
	return Vec3i{MinInt(a.X, b.X), MinInt(a.Y, b.Y), MinInt(a.Z, b.Z)}
}

// Max is the component-wise maximum.
func Max(a, b Vec3i) Vec3i {
	return Vec3i{MaxInt(a.X, b.X), MaxInt(a.Y, b.Y), MaxInt(a.Z, b.Z)}
}

func Manhattan(a, b Vec3i) int {
	return AbsInt(a.X-b.X) + AbsInt(a.Y-b.Y) + AbsInt(a.Z-b.Z)
}
