package ledger

// SetBeforePublish installs a callback that runs after a commit attempt has
// built its candidate snapshot and before it tries the head CAS.
func (l *Ledger[V]) SetBeforePublish(fn func()) {
	l.beforePublish = fn
}
