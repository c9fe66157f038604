package app

// releaser runs cleanup functions last in, first out.
type releaser struct {
	funcs []func()
}

func (r *releaser) push(release func()) {
	r.funcs = append(r.funcs, release)
}

// release is safe to call more than once.
func (r *releaser) release() {
	for len(r.funcs) > 0 {
		last := len(r.funcs) - 1
		release := r.funcs[last]
		r.funcs = r.funcs[:last]
		release()
	}
}
