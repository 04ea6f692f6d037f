package sqlinline

const QInsertUsageEvent = `--sql 23e7d016-d53e-4f64-be52-73970144e7bc
insert into usage_events (id, user_id, event_type, success, credits_spent, country, properties, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::boolean, $4::int, nullif($5::text, ''), coalesce($6::jsonb, '{}'::jsonb), now());
`
